package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-kotel/internal/queue"
)

type eventKind uint8

const (
	evSend eventKind = iota
	evConnect
	evDialed
	evInbound
	evClosed
	evOpenTimeout
	evIdleTimeout
	evReconnect
	evToken
	evReset
	evClose
)

// event is the only way helper goroutines talk to the control loop.
// gen ties connection scoped events to the connection that produced them.
type event struct {
	kind      eventKind
	gen       uint64
	seq       uint64
	req       *pendingRequest
	msg       Message
	transport Transport
	token     string
	err       error
}

// run is the control loop. It is the only goroutine touching c.loop.
func (c *Client) run() {
	defer close(c.done)

	stop := c.taskMgr.Context().Done()
	for {
		select {
		case ev := <-c.events:
			if c.handle(ev) {
				return
			}
		case <-stop:
			c.shutdown()
			return
		}
	}
}

// handle processes one event and reports whether the loop must exit.
func (c *Client) handle(ev event) bool {
	l := &c.loop

	switch ev.kind {
	case evSend:
		c.enqueue(ev.req)

	case evConnect:
		c.connect()

	case evDialed:
		if ev.gen != l.gen {
			if ev.transport != nil {
				_ = ev.transport.Close()
			}
			return false
		}
		c.onDialed(ev.transport, ev.err)

	case evInbound:
		if ev.gen == l.gen && l.transport != nil {
			c.onInbound(ev.msg)
		}

	case evClosed:
		if ev.gen == l.gen && l.transport != nil {
			c.onTransportClosed(ev.err)
		}

	case evOpenTimeout:
		if ev.gen == l.gen && c.State().IsConnecting() {
			c.metrics.incOpenTimeoutCount()
			c.disconnect(ReasonOpenTimeout, nil)
		}

	case evIdleTimeout:
		if ev.gen == l.gen && ev.seq == l.idleSeq && l.transport != nil {
			c.metrics.incIdleTimeoutCount()
			c.disconnect(ReasonIdleTimeout, nil)
		}

	case evReconnect:
		if ev.gen == l.gen {
			c.connect()
		}

	case evToken:
		c.onToken(ev.token, ev.err)

	case evReset:
		if !c.State().IsDisconnected() {
			c.disconnect(ReasonReset, nil)
		}

	case evClose:
		c.shutdown()
		return true
	}

	return false
}

func (c *Client) enqueue(req *pendingRequest) {
	l := &c.loop

	q, ok := l.pending[req.cmd]
	if !ok {
		q = queue.NewSliceQueue[*pendingRequest](4)
		l.pending[req.cmd] = q
	}
	q.Enqueue(req)
	l.outbound.Enqueue(req)
	c.metrics.incPendingGauge()

	c.flush()
}

// flush transmits the oldest queued frame when the connection is open and idle, and starts
// connecting when there is no connection.
func (c *Client) flush() {
	l := &c.loop

	if l.transport == nil {
		c.connect()
		return
	}
	if l.inFlight || !c.State().IsOpen() {
		return
	}

	req, ok := l.outbound.Dequeue()
	if !ok {
		return
	}

	if err := l.transport.Send(Message{Data: req.frame}); err != nil {
		c.logger.Warn("failed to send frame", "method", "flush", "cmd", req.cmd, "error", err)
		c.disconnect(ReasonTransportFailure, err)
		return
	}
	l.inFlight = true
	c.metrics.incRequestSendCount()
	c.logger.Debug("frame sent", "cmd", req.cmd, "size", len(req.frame))
}

func (c *Client) onInbound(msg Message) {
	l := &c.loop

	c.armIdleTimer()

	matched := false
	if len(msg.Data) > 0 {
		cmd := Cmd(msg.Data[0])
		if q, ok := l.pending[cmd]; ok {
			if req, ok := q.Dequeue(); ok {
				c.resolve(req, msg.Data[1:], nil)
				c.metrics.incResponseRecvCount()
				matched = true
			}
		}
	}
	if !matched {
		c.metrics.incUnsolicitedCount()
		c.logger.Debug("discard unsolicited message", "size", len(msg.Data), "text", msg.Text)
	}

	l.inFlight = false
	c.flush()
}

// connect dials a new transport unless one exists, one is being dialed, or a token renewal is
// running.
func (c *Client) connect() {
	l := &c.loop

	if l.closed || l.renewing || l.transport != nil || !c.State().IsDisconnected() {
		return
	}

	stopTimer(&l.reconnectTimer)
	l.gen++
	gen := l.gen

	if err := c.stateMgr.ToConnecting(); err != nil {
		c.logger.Error("failed to enter connecting state", "method", "connect", "error", err)
		return
	}
	c.metrics.incConnectCount()

	ctx, cancel := context.WithCancel(c.taskMgr.Context())
	l.dialCancel = cancel
	l.openTimer = c.afterFunc(c.cfg.openTimeout, event{kind: evOpenTimeout, gen: gen})

	tok := c.cfg.tokens.Get()
	c.logger.Debug("connecting", "gen", gen, "has_token", tok != "")

	err := c.taskMgr.Go("dial", func(context.Context) {
		t, err := c.dialer.Dial(ctx, tok)
		if !c.post(event{kind: evDialed, gen: gen, transport: t, err: err}) && t != nil {
			_ = t.Close()
		}
	})
	if err != nil {
		c.disconnect(ReasonTransportFailure, err)
	}
}

func (c *Client) onDialed(t Transport, err error) {
	l := &c.loop

	stopTimer(&l.openTimer)
	if err != nil {
		c.logger.Warn("failed to connect", "method", "onDialed", "error", err)
		c.disconnect(ReasonTransportFailure, err)
		return
	}

	l.transport = t
	l.inFlight = false
	if err := c.stateMgr.ToOpen(); err != nil {
		c.logger.Error("failed to enter open state", "method", "onDialed", "error", err)
	}
	c.logger.Info("connection opened", "gen", l.gen)
	c.armIdleTimer()

	gen := l.gen
	err = c.taskMgr.Start("receiver", func() bool {
		msg, err := t.Receive()
		if err != nil {
			c.post(event{kind: evClosed, gen: gen, err: err})
			return false
		}

		return c.post(event{kind: evInbound, gen: gen, msg: msg})
	}, nil)
	if err != nil {
		c.disconnect(ReasonTransportFailure, err)
		return
	}

	if hook := c.cfg.onConnected; hook != nil {
		_ = c.taskMgr.Go("onConnected", func(ctx context.Context) {
			hook(ctx)
		})
	}

	c.flush()
}

func (c *Client) onTransportClosed(err error) {
	var ce *CloseError
	if !errors.As(err, &ce) {
		err = &CloseError{Code: CloseAbnormal, Err: err}
	}
	c.logger.Info("connection closed", "code", closeCode(err), "error", err)

	c.disconnect(ReasonReset, err)
}

// disconnect enters the disconnected state: it closes the transport, rejects every pending
// request, drops the frames not transmitted yet and schedules the next attempt.
func (c *Client) disconnect(reason Reason, cause error) {
	l := &c.loop

	l.gen++
	c.teardown()

	n := c.rejectAll(&ConnError{Reason: reason, Err: cause})
	c.metrics.incDisconnectCount()
	c.logger.Warn("connection dropped", "reason", reason, "error", cause, "rejected", n)

	c.stateMgr.ToDisconnected()

	if errors.Is(cause, ErrAuthRequired) && c.cfg.onTokenRequired != nil {
		c.renewToken()
		return
	}
	c.scheduleReconnect()
}

func (c *Client) renewToken() {
	l := &c.loop

	l.renewing = true
	hook := c.cfg.onTokenRequired
	c.logger.Info("device requires a new token")

	err := c.taskMgr.Go("onTokenRequired", func(ctx context.Context) {
		tok, err := hook(ctx)
		c.post(event{kind: evToken, token: tok, err: err})
	})
	if err != nil {
		l.renewing = false
	}
}

func (c *Client) onToken(tok string, err error) {
	l := &c.loop

	l.renewing = false
	if err != nil {
		c.logger.Warn("token renewal failed", "error", err)
	} else if err := c.cfg.tokens.Set(tok); err != nil {
		c.logger.Error("failed to store token", "error", err)
	} else {
		c.metrics.incTokenRenewCount()
		c.logger.Info("token renewed")
	}

	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	l := &c.loop

	stopTimer(&l.reconnectTimer)
	l.reconnectTimer = c.afterFunc(c.cfg.reconnectDelay, event{kind: evReconnect, gen: l.gen})
}

func (c *Client) armIdleTimer() {
	l := &c.loop

	stopTimer(&l.idleTimer)
	l.idleSeq++
	l.idleTimer = c.afterFunc(c.cfg.idleTimeout, event{kind: evIdleTimeout, gen: l.gen, seq: l.idleSeq})
}

// teardown stops the timers, aborts a running dial and closes the transport.
func (c *Client) teardown() {
	l := &c.loop

	stopTimer(&l.openTimer)
	stopTimer(&l.idleTimer)
	stopTimer(&l.reconnectTimer)

	if l.dialCancel != nil {
		l.dialCancel()
		l.dialCancel = nil
	}

	if l.transport != nil {
		if err := l.transport.Close(); err != nil {
			c.logger.Debug("failed to close transport", "error", err)
		}
		l.transport = nil
	}
	l.inFlight = false
}

// rejectAll rejects every pending request with err and empties the outbound queue.
func (c *Client) rejectAll(err error) int {
	l := &c.loop

	n := 0
	for _, q := range l.pending {
		for _, req := range q.Drain() {
			if c.resolve(req, nil, err) {
				c.metrics.incRejectedCount()
				n++
			}
		}
	}
	l.outbound.Reset()

	return n
}

// resolve completes req once; later calls are ignored.
func (c *Client) resolve(req *pendingRequest, payload []byte, err error) bool {
	if req.resolved {
		return false
	}
	req.resolved = true
	req.result <- requestResult{payload: payload, err: err}
	c.metrics.decPendingGauge()

	return true
}

func (c *Client) shutdown() {
	l := &c.loop

	l.closed = true
	l.gen++
	c.teardown()
	n := c.rejectAll(ErrClientClosed)
	c.stateMgr.ToDisconnected()
	c.logger.Debug("client closed", "rejected", n)

	// reject what was posted after the close request
	for {
		select {
		case ev := <-c.events:
			switch {
			case ev.kind == evSend:
				ev.req.resolved = true
				ev.req.result <- requestResult{err: ErrClientClosed}
			case ev.transport != nil:
				_ = ev.transport.Close()
			}
		default:
			return
		}
	}
}

func (c *Client) afterFunc(d time.Duration, ev event) *time.Timer {
	return time.AfterFunc(d, func() {
		c.post(ev)
	})
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
