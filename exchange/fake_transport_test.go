package exchange

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type fakeTransport struct {
	sent      chan []byte
	inbox     chan Message
	peer      chan error
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:   make(chan []byte, 64),
		inbox:  make(chan Message, 64),
		peer:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Send(msg Message) error {
	f.mu.Lock()
	err := f.sendErr
	f.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case <-f.closed:
		return io.ErrClosedPipe
	default:
	}

	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)
	f.sent <- data

	return nil
}

func (f *fakeTransport) Receive() (Message, error) {
	select {
	case msg := <-f.inbox:
		return msg, nil
	case err := <-f.peer:
		return Message{}, err
	case <-f.closed:
		return Message{}, &CloseError{Code: CloseAbnormal, Err: io.EOF}
	}
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

// reply delivers a device message starting with cmd.
func (f *fakeTransport) reply(cmd Cmd, payload []byte) {
	data := append([]byte{byte(cmd)}, payload...)
	f.inbox <- Message{Data: data}
}

func (f *fakeTransport) peerClose(code int) {
	f.peer <- &CloseError{Code: code}
}

func (f *fakeTransport) nextFrame(t *testing.T) []byte {
	t.Helper()

	select {
	case frame := <-f.sent:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for a frame")
		return nil
	}
}

func (f *fakeTransport) expectNoFrame(t *testing.T, d time.Duration) {
	t.Helper()

	select {
	case frame := <-f.sent:
		t.Fatalf("unexpected frame %q", frame)
	case <-time.After(d):
	}
}

func (f *fakeTransport) waitClosed(t *testing.T) {
	t.Helper()

	select {
	case <-f.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("transport was not closed")
	}
}

type fakeDialer struct {
	mu     sync.Mutex
	tokens []string
	dialFn func(ctx context.Context) error
	conns  chan *fakeTransport
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeTransport, 64)}
}

func (d *fakeDialer) Dial(ctx context.Context, token string) (Transport, error) {
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	fn := d.dialFn
	d.mu.Unlock()

	if fn != nil {
		if err := fn(ctx); err != nil {
			return nil, err
		}
	}

	t := newFakeTransport()
	d.conns <- t

	return t, nil
}

func (d *fakeDialer) setDialFn(fn func(ctx context.Context) error) {
	d.mu.Lock()
	d.dialFn = fn
	d.mu.Unlock()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.tokens)
}

func (d *fakeDialer) tokenAt(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i >= len(d.tokens) {
		return ""
	}

	return d.tokens[i]
}

func (d *fakeDialer) nextConn(t *testing.T) *fakeTransport {
	t.Helper()

	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for a connection")
		return nil
	}
}

var errRefused = errors.New("connection refused")
