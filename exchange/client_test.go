package exchange

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-kotel/logger"
	"github.com/arloliu/go-kotel/token"
)

func TestMain(m *testing.M) {
	level, _ := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger.SetLevel(level)

	os.Exit(m.Run())
}

type sendResult struct {
	payload []byte
	err     error
}

func newTestClient(t *testing.T, dialer Dialer, opts ...ClientOption) *Client {
	t.Helper()

	client, err := NewClient(context.Background(), dialer, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// sendAsync issues a request from its own goroutine and waits until the client has queued it,
// so consecutive calls are queued in call order.
func sendAsync(t *testing.T, client *Client, cmd Cmd, payload []byte) chan sendResult {
	t.Helper()

	ch := make(chan sendResult, 1)
	before := client.Metrics().PendingGauge.Load()
	go func() {
		reply, err := client.SendRequest(context.Background(), cmd, payload)
		ch <- sendResult{payload: reply, err: err}
	}()
	require.Eventually(t, func() bool {
		return client.Metrics().PendingGauge.Load() > before
	}, 2*time.Second, time.Millisecond)

	return ch
}

func waitResult(t *testing.T, ch chan sendResult) sendResult {
	t.Helper()

	select {
	case res := <-ch:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for request result")
		return sendResult{}
	}
}

func TestClient_FramesTransmitInCallOrderOneAtATime(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer)

	cmds := []Cmd{'a', 'b', 'a', 'c', 'b'}
	results := make([]chan sendResult, len(cmds))
	for i, cmd := range cmds {
		results[i] = sendAsync(t, client, cmd, []byte{byte(i)})
	}

	conn := dialer.nextConn(t)
	for i, cmd := range cmds {
		require.Equal([]byte{byte(cmd), byte(i)}, conn.nextFrame(t))
		// single-flight: nothing else goes out before the reply
		conn.expectNoFrame(t, 30*time.Millisecond)
		conn.reply(cmd, []byte{byte(i), 0xaa})
	}

	for i := range cmds {
		res := waitResult(t, results[i])
		require.NoError(res.err)
		require.Equal([]byte{byte(i), 0xaa}, res.payload)
	}

	m := client.Metrics()
	require.EqualValues(len(cmds), m.RequestSendCount.Load())
	require.EqualValues(len(cmds), m.ResponseRecvCount.Load())
	require.Zero(m.PendingGauge.Load())
}

func TestClient_SameSelectorResolvesInSendOrder(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer)

	first := sendAsync(t, client, 'T', []byte("same"))
	second := sendAsync(t, client, 'T', []byte("same"))

	conn := dialer.nextConn(t)
	require.Equal([]byte("Tsame"), conn.nextFrame(t))
	conn.reply('T', []byte("one"))
	require.Equal([]byte("Tsame"), conn.nextFrame(t))
	conn.reply('T', []byte("two"))

	require.Equal([]byte("one"), waitResult(t, first).payload)
	require.Equal([]byte("two"), waitResult(t, second).payload)
}

func TestClient_UnsolicitedMessageIsDiscarded(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer)

	res := sendAsync(t, client, 'c', nil)
	conn := dialer.nextConn(t)
	require.Equal([]byte("c"), conn.nextFrame(t))

	conn.reply('z', []byte("noise"))
	conn.inbox <- Message{} // empty message
	conn.reply('c', []byte("ok"))

	got := waitResult(t, res)
	require.NoError(got.err)
	require.Equal([]byte("ok"), got.payload)
	require.Eventually(func() bool {
		return client.Metrics().UnsolicitedCount.Load() == 2
	}, time.Second, time.Millisecond)
}

func TestClient_TextReply(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer)

	done := make(chan string, 1)
	go func() {
		reply, err := client.SendText(context.Background(), 'C', "")
		if err == nil {
			done <- reply
		}
	}()

	conn := dialer.nextConn(t)
	require.Equal([]byte("C"), conn.nextFrame(t))
	conn.inbox <- Message{Data: []byte("Cmode=1\r\n"), Text: true}

	select {
	case reply := <-done:
		require.Equal("mode=1\r\n", reply)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
}

func TestClient_CanceledCallerKeepsCorrelation(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer)

	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan error, 1)
	go func() {
		_, err := client.SendRequest(ctx, 'c', []byte{1})
		canceled <- err
	}()
	require.Eventually(func() bool {
		return client.Metrics().PendingGauge.Load() == 1
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(<-canceled, context.Canceled)

	second := sendAsync(t, client, 'c', []byte{2})

	conn := dialer.nextConn(t)
	require.Equal([]byte{'c', 1}, conn.nextFrame(t))
	conn.reply('c', []byte("for-first"))
	require.Equal([]byte{'c', 2}, conn.nextFrame(t))
	conn.reply('c', []byte("for-second"))

	require.Equal([]byte("for-second"), waitResult(t, second).payload)
}

func TestClient_IdleTimeoutRejectsAllAndReconnects(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer,
		WithIdleTimeout(150*time.Millisecond),
		WithReconnectDelay(50*time.Millisecond),
	)

	results := []chan sendResult{
		sendAsync(t, client, 'x', nil),
		sendAsync(t, client, 'y', nil),
		sendAsync(t, client, 'x', nil),
	}

	conn := dialer.nextConn(t)
	require.Equal([]byte("x"), conn.nextFrame(t))

	for _, ch := range results {
		res := waitResult(t, ch)
		require.ErrorIs(res.err, ErrConnectionFailure)
		require.True(IsReason(res.err, ReasonIdleTimeout), res.err)
	}
	rejectedAt := time.Now()
	conn.waitClosed(t)

	conn2 := dialer.nextConn(t)
	require.Less(time.Since(rejectedAt), time.Second)

	// frames that were never transmitted are dropped with their requests
	conn2.expectNoFrame(t, 80*time.Millisecond)

	m := client.Metrics()
	require.EqualValues(3, m.RejectedCount.Load())
	require.GreaterOrEqual(m.IdleTimeoutCount.Load(), uint64(1))
	require.Zero(m.PendingGauge.Load())
}

func TestClient_InboundTrafficDefersIdleTimeout(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer, WithIdleTimeout(200*time.Millisecond))

	require.NoError(client.Connect())
	conn := dialer.nextConn(t)
	require.NoError(client.WaitState(context.Background(), OpenState))

	for i := 0; i < 6; i++ {
		time.Sleep(80 * time.Millisecond)
		conn.reply('p', nil)
	}

	require.Equal(OpenState, client.State())
	require.Zero(client.Metrics().IdleTimeoutCount.Load())
	require.Equal(1, dialer.dialCount())
}

func TestClient_AuthCloseRenewsTokenBeforeReconnect(t *testing.T) {
	require := require.New(t)

	store, err := token.NewStore(nil)
	require.NoError(err)
	require.NoError(store.Set("stale"))

	dialer := newFakeDialer()
	hookCalls := make(chan int, 4)
	client := newTestClient(t, dialer,
		WithTokenStore(store),
		WithReconnectDelay(20*time.Millisecond),
		WithOnTokenRequired(func(ctx context.Context) (string, error) {
			hookCalls <- dialer.dialCount()
			return "fresh", nil
		}),
	)

	res := sendAsync(t, client, 'c', nil)
	conn := dialer.nextConn(t)
	require.Equal("stale", dialer.tokenAt(0))
	require.Equal([]byte("c"), conn.nextFrame(t))

	conn.peerClose(4001)

	got := waitResult(t, res)
	require.ErrorIs(got.err, ErrConnectionFailure)
	require.ErrorIs(got.err, ErrAuthRequired)
	require.True(IsReason(got.err, ReasonReset))

	conn2 := dialer.nextConn(t)
	select {
	case dials := <-hookCalls:
		require.Equal(1, dials, "hook must run before the next dial")
	default:
		t.Fatal("token hook was not invoked")
	}
	require.Equal("fresh", dialer.tokenAt(1))
	require.Equal("fresh", store.Get())
	require.EqualValues(1, client.Metrics().TokenRenewCount.Load())

	// an abnormal close does not ask for a token
	require.NoError(client.WaitState(context.Background(), OpenState))
	conn2.peerClose(CloseAbnormal)

	_ = dialer.nextConn(t)
	require.Empty(hookCalls)
	require.Equal("fresh", dialer.tokenAt(2))
}

func TestClient_AuthCloseWithoutHookReconnects(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer, WithReconnectDelay(20*time.Millisecond))

	require.NoError(client.Connect())
	conn := dialer.nextConn(t)
	require.NoError(client.WaitState(context.Background(), OpenState))

	conn.peerClose(4090)
	_ = dialer.nextConn(t)
	require.Zero(client.Metrics().TokenRenewCount.Load())
}

func TestClient_DialFailure(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	dialer.setDialFn(func(context.Context) error { return errRefused })
	client := newTestClient(t, dialer, WithReconnectDelay(20*time.Millisecond))

	_, err := client.SendRequest(context.Background(), 'c', nil)
	require.ErrorIs(err, errRefused)
	require.True(IsReason(err, ReasonTransportFailure))

	// keeps retrying with the fixed delay
	require.Eventually(func() bool {
		return dialer.dialCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	dialer.setDialFn(nil)
	require.NoError(client.WaitState(context.Background(), OpenState))
}

func TestClient_OpenTimeout(t *testing.T) {
	require := require.New(t)

	dialCanceled := make(chan struct{}, 8)
	dialer := newFakeDialer()
	dialer.setDialFn(func(ctx context.Context) error {
		<-ctx.Done()
		dialCanceled <- struct{}{}
		return ctx.Err()
	})
	client := newTestClient(t, dialer,
		WithOpenTimeout(100*time.Millisecond),
		WithReconnectDelay(time.Minute),
	)

	res := waitResult(t, sendAsync(t, client, 'c', nil))
	require.True(IsReason(res.err, ReasonOpenTimeout), res.err)

	select {
	case <-dialCanceled:
	case <-time.After(time.Second):
		t.Fatal("dial was not canceled")
	}
	require.Equal(DisconnectedState, client.State())
	require.EqualValues(1, client.Metrics().OpenTimeoutCount.Load())
}

func TestClient_SendFailure(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client := newTestClient(t, dialer, WithReconnectDelay(time.Minute))

	require.NoError(client.Connect())
	conn := dialer.nextConn(t)
	require.NoError(client.WaitState(context.Background(), OpenState))
	conn.setSendErr(errRefused)

	res, err := client.SendRequest(context.Background(), 'c', nil)
	require.Nil(res)
	require.ErrorIs(err, errRefused)
	require.True(IsReason(err, ReasonTransportFailure))
	conn.waitClosed(t)
}

func TestClient_ResetAndOnConnected(t *testing.T) {
	require := require.New(t)

	connected := make(chan struct{}, 4)
	dialer := newFakeDialer()
	client := newTestClient(t, dialer,
		WithReconnectDelay(20*time.Millisecond),
		WithOnConnected(func(ctx context.Context) {
			connected <- struct{}{}
		}),
	)

	res := sendAsync(t, client, 'c', nil)
	conn := dialer.nextConn(t)
	<-connected
	_ = conn.nextFrame(t)

	require.NoError(client.Reset())
	got := waitResult(t, res)
	require.True(IsReason(got.err, ReasonReset))
	conn.waitClosed(t)

	_ = dialer.nextConn(t)
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("onConnected not invoked after reconnect")
	}
}

func TestClient_StateHandler(t *testing.T) {
	require := require.New(t)

	states := make(chan ConnState, 8)
	dialer := newFakeDialer()
	client := newTestClient(t, dialer, WithStateHandler(func(_, next ConnState) {
		states <- next
	}))

	require.NoError(client.Connect())
	require.Equal(ConnectingState, <-states)
	require.Equal(OpenState, <-states)

	require.NoError(client.Close())
	require.Equal(DisconnectedState, <-states)
}

func TestClient_Close(t *testing.T) {
	require := require.New(t)

	dialer := newFakeDialer()
	client, err := NewClient(context.Background(), dialer)
	require.NoError(err)

	res := sendAsync(t, client, 'c', nil)
	conn := dialer.nextConn(t)
	_ = conn.nextFrame(t)

	require.NoError(client.Close())
	require.ErrorIs(waitResult(t, res).err, ErrClientClosed)
	conn.waitClosed(t)

	_, err = client.SendRequest(context.Background(), 'c', nil)
	require.ErrorIs(err, ErrClientClosed)
	require.ErrorIs(client.Connect(), ErrClientClosed)
	require.ErrorIs(client.Reset(), ErrClientClosed)
	require.NoError(client.Close())
	require.Equal(DisconnectedState, client.State())
	require.Zero(client.Metrics().PendingGauge.Load())
}

func TestClient_CloseWaitsForConnectedHook(t *testing.T) {
	require := require.New(t)

	hookErr := make(chan error, 1)
	started := make(chan struct{})
	dialer := newFakeDialer()

	var client *Client
	client, err := NewClient(context.Background(), dialer, WithOnConnected(func(ctx context.Context) {
		close(started)
		// the device never answers, the hook only returns once the client closes
		_, err := client.SendRequest(ctx, 'C', nil)
		hookErr <- err
	}))
	require.NoError(err)

	require.NoError(client.Connect())
	conn := dialer.nextConn(t)
	<-started
	_ = conn.nextFrame(t)

	closed := make(chan struct{})
	go func() {
		_ = client.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close blocked on the connected hook")
	}
	err = <-hookErr
	require.True(errors.Is(err, ErrClientClosed) || errors.Is(err, context.Canceled), err)
}

func TestClient_ParentContextCancel(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	client, err := NewClient(ctx, newFakeDialer())
	require.NoError(err)

	cancel()
	require.Eventually(func() bool {
		return client.Connect() != nil
	}, time.Second, time.Millisecond)
	require.NoError(client.Close())
}

func TestNewClient_Invalid(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	require.ErrorIs(t, err, ErrDialerNil)

	_, err = NewClientWithConfig(context.Background(), newFakeDialer(), nil)
	require.ErrorIs(t, err, ErrClientConfigNil)

	_, err = NewClient(context.Background(), newFakeDialer(), WithIdleTimeout(time.Nanosecond))
	require.Error(t, err)
}

func TestCmdString(t *testing.T) {
	require.Equal(t, "c", Cmd('c').String())
	require.Equal(t, "#", Cmd('#').String())
	require.Equal(t, "6", Cmd(6).String())
}
