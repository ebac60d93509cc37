package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/go-kotel/internal/queue"
	"github.com/arloliu/go-kotel/logger"
)

// Client multiplexes requests from many callers over one device connection.
//
// It is safe for concurrent use. Requests are transmitted in call order, one at a time, and
// each reply resolves the oldest pending request of its selector.
type Client struct {
	cfg      *ClientConfig
	dialer   Dialer
	logger   logger.Logger
	stateMgr *ConnStateMgr
	taskMgr  *TaskManager
	metrics  ClientMetrics

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// owned by the control loop
	loop loopState
}

type loopState struct {
	gen        uint64
	transport  Transport
	dialCancel func()
	outbound   queue.Queue[*pendingRequest]
	pending    map[Cmd]queue.Queue[*pendingRequest]
	inFlight   bool
	renewing   bool
	closed     bool

	openTimer      *time.Timer
	idleTimer      *time.Timer
	idleSeq        uint64
	reconnectTimer *time.Timer
}

type pendingRequest struct {
	cmd      Cmd
	frame    []byte
	result   chan requestResult
	resolved bool
}

type requestResult struct {
	payload []byte
	err     error
}

// NewClient creates a client dialing through dialer. The client starts disconnected; the first
// request, or Connect, opens the connection.
func NewClient(ctx context.Context, dialer Dialer, opts ...ClientOption) (*Client, error) {
	cfg, err := NewClientConfig(opts...)
	if err != nil {
		return nil, err
	}

	return NewClientWithConfig(ctx, dialer, cfg)
}

// NewClientWithConfig creates a client from a prepared configuration.
func NewClientWithConfig(ctx context.Context, dialer Dialer, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, ErrClientConfigNil
	}
	if dialer == nil {
		return nil, ErrDialerNil
	}

	c := &Client{
		cfg:    cfg,
		dialer: dialer,
		logger: cfg.logger,
		events: make(chan event, cfg.eventQueueSize),
		done:   make(chan struct{}),
	}
	c.stateMgr = NewConnStateMgr(cfg.logger, cfg.stateHandlers...)
	c.taskMgr = NewTaskManager(ctx, cfg.logger)
	c.loop.outbound = queue.NewSliceQueue[*pendingRequest](16)
	c.loop.pending = make(map[Cmd]queue.Queue[*pendingRequest])

	go c.run()

	return c, nil
}

// SendRequest transmits cmd followed by payload and waits for the device's reply, returning the
// reply payload without its selector byte.
//
// When the connection goes down before the reply arrives the request is rejected with a
// *ConnError. Canceling ctx only stops waiting: the request stays queued so that later replies
// of the same selector are still matched to the right callers.
func (c *Client) SendRequest(ctx context.Context, cmd Cmd, payload []byte) ([]byte, error) {
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(cmd)
	copy(frame[1:], payload)

	req := &pendingRequest{
		cmd:    cmd,
		frame:  frame,
		result: make(chan requestResult, 1),
	}
	if !c.post(event{kind: evSend, req: req}) {
		return nil, ErrClientClosed
	}

	select {
	case res := <-req.result:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		select {
		case res := <-req.result:
			return res.payload, res.err
		default:
			return nil, ErrClientClosed
		}
	}
}

// SendText is SendRequest with a textual payload.
func (c *Client) SendText(ctx context.Context, cmd Cmd, text string) (string, error) {
	reply, err := c.SendRequest(ctx, cmd, []byte(text))
	if err != nil {
		return "", err
	}

	return string(reply), nil
}

// Connect starts connecting when the client is disconnected. It does not wait; use WaitState
// to wait for the connection to open.
func (c *Client) Connect() error {
	if !c.post(event{kind: evConnect}) {
		return ErrClientClosed
	}

	return nil
}

// Reset drops the current connection as if the peer had reset it. Pending requests are rejected
// with ReasonReset and the client reconnects after the reconnect delay.
func (c *Client) Reset() error {
	if !c.post(event{kind: evReset}) {
		return ErrClientClosed
	}

	return nil
}

// Close closes the connection, rejects pending requests with ErrClientClosed and waits for the
// client's goroutines to terminate. Calling Close more than once is a no-op.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		select {
		case c.events <- event{kind: evClose}:
		case <-c.done:
		}
		<-c.done

		c.taskMgr.Stop()
		c.taskMgr.Wait()
	})

	return nil
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return c.stateMgr.State()
}

// WaitState waits until the connection reaches state or ctx is done.
func (c *Client) WaitState(ctx context.Context, state ConnState) error {
	return c.stateMgr.WaitState(ctx, state)
}

// AddStateHandler registers a handler invoked on connection state changes.
func (c *Client) AddStateHandler(handler ConnStateChangeHandler) {
	c.stateMgr.AddHandler(handler)
}

// Metrics returns the client metrics.
func (c *Client) Metrics() *ClientMetrics {
	return &c.metrics
}

// Config returns the client configuration.
func (c *Client) Config() *ClientConfig {
	return c.cfg
}

// Logger returns the client logger.
func (c *Client) Logger() logger.Logger {
	return c.logger
}

// post hands ev to the control loop. It returns false once the client is closed.
func (c *Client) post(ev event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}
