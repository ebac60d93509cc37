package exchange

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-kotel/logger"
)

// ConnState represents the stages of the device connection.
type ConnState uint32

// Connection states.
const (
	// DisconnectedState indicates that no transport exists.
	DisconnectedState ConnState = iota
	// ConnectingState indicates that a transport is being dialed.
	ConnectingState
	// OpenState indicates that the transport is established and frames can be exchanged.
	OpenState
)

// IsDisconnected returns if the current state is disconnected.
func (cs ConnState) IsDisconnected() bool { return cs == DisconnectedState }

// IsConnecting returns if the current state is connecting.
func (cs ConnState) IsConnecting() bool { return cs == ConnectingState }

// IsOpen returns if the current state is open.
func (cs ConnState) IsOpen() bool { return cs == OpenState }

// String returns string representation of the current state.
func (cs ConnState) String() string {
	switch cs {
	case DisconnectedState:
		return "disconnected"
	case ConnectingState:
		return "connecting"
	case OpenState:
		return "open"
	default:
		return "unknown"
	}
}

// ConnStateChangeHandler is invoked when the connection state changes.
//
// Note: the handler is invoked from the client's control loop. It must not block and must not
// call back into the client synchronously.
type ConnStateChangeHandler func(prevState ConnState, newState ConnState)

// ConnStateMgr manages the connection state of a Client.
//
// Transitions are made by the control loop only; State and WaitState are safe for concurrent use.
type ConnStateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	logger   logger.Logger
	handlers []ConnStateChangeHandler
}

// NewConnStateMgr creates a new ConnStateMgr initialized to DisconnectedState.
func NewConnStateMgr(l logger.Logger, handlers ...ConnStateChangeHandler) *ConnStateMgr {
	if l == nil {
		l = logger.GetLogger()
	}

	cs := &ConnStateMgr{
		logger:   l,
		handlers: make([]ConnStateChangeHandler, 0, len(handlers)),
	}
	cs.AddHandler(handlers...)
	cs.state.Store(uint32(DisconnectedState))
	cs.cond = sync.NewCond(&cs.mu)

	return cs
}

// State returns the current connection state.
func (cs *ConnStateMgr) State() ConnState {
	return ConnState(cs.state.Load())
}

// AddHandler adds one or more ConnStateChangeHandler functions to be invoked on state changes.
func (cs *ConnStateMgr) AddHandler(handlers ...ConnStateChangeHandler) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			cs.handlers = append(cs.handlers, h)
		}
	}
}

// WaitState waits for the connection state to reach the specified state or until the context is done.
// It returns nil if the desired state is reached, or ctx.Err() otherwise.
func (cs *ConnStateMgr) WaitState(ctx context.Context, state ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		cs.mu.Lock()
		cs.cond.Broadcast()
		cs.mu.Unlock()
	})
	defer stopFunc()

	for cs.State() != state {
		if err := ctx.Err(); err != nil {
			cs.logger.Debug("wait connection state canceled", "cur_state", cs.State(), "desired_state", state)
			return err
		}
		cs.cond.Wait()
	}

	return nil
}

// ToDisconnected transitions to DisconnectedState. It is allowed from any state and is a no-op
// when already disconnected.
func (cs *ConnStateMgr) ToDisconnected() {
	_ = cs.transition(DisconnectedState, func(ConnState) bool { return true })
}

// ToConnecting transitions to ConnectingState. It is only allowed from DisconnectedState.
func (cs *ConnStateMgr) ToConnecting() error {
	return cs.transition(ConnectingState, ConnState.IsDisconnected)
}

// ToOpen transitions to OpenState. It is only allowed from ConnectingState.
func (cs *ConnStateMgr) ToOpen() error {
	return cs.transition(OpenState, ConnState.IsConnecting)
}

func (cs *ConnStateMgr) transition(newState ConnState, allowed func(ConnState) bool) error {
	cs.mu.Lock()
	curState := cs.State()
	if curState == newState {
		cs.mu.Unlock()
		return nil
	}
	if !allowed(curState) {
		cs.mu.Unlock()
		return ErrInvalidTransition
	}

	cs.state.Store(uint32(newState))
	cs.cond.Broadcast()
	handlers := cs.handlers
	cs.mu.Unlock()

	cs.logger.Debug("connection state changed", "prev_state", curState, "new_state", newState)
	for _, h := range handlers {
		h(curState, newState)
	}

	return nil
}
