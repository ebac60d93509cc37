package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailure is matched by every *ConnError.
	ErrConnectionFailure = errors.New("connection failure")

	// ErrAuthRequired indicates that the device refused the credential and a new token is needed.
	// It is matched by a *CloseError, and by a *ConnError wrapping one, whose code is above 4000.
	ErrAuthRequired = errors.New("authentication required")

	// ErrClientClosed indicates that the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrClientConfigNil indicates that a nil ClientConfig was provided.
	ErrClientConfigNil = errors.New("client config is nil")

	// ErrDialerNil indicates that a nil Dialer was provided.
	ErrDialerNil = errors.New("dialer is nil")
)

var (
	// ErrInvalidTransition is returned when an attempt is made to transition the connection
	// state to an invalid state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Reason tells why a connection was dropped.
type Reason string

const (
	// ReasonTransportFailure means dialing failed or a frame could not be written.
	ReasonTransportFailure Reason = "transport-failure"
	// ReasonOpenTimeout means the connection was not established within the open timeout.
	ReasonOpenTimeout Reason = "open-timeout"
	// ReasonIdleTimeout means nothing was received within the idle timeout.
	ReasonIdleTimeout Reason = "idle-timeout"
	// ReasonReset means the peer closed the connection, it dropped, or Client.Reset was called.
	ReasonReset Reason = "reset"
)

// ConnError rejects the pending requests of a connection that went down.
type ConnError struct {
	Reason Reason
	Err    error
}

func (e *ConnError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection failure (%s)", e.Reason)
	}

	return fmt.Sprintf("connection failure (%s): %v", e.Reason, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// Is reports ErrConnectionFailure as a match for every ConnError.
func (e *ConnError) Is(target error) bool {
	return target == ErrConnectionFailure
}

// IsReason reports whether err is a *ConnError with the given reason.
func IsReason(err error, reason Reason) bool {
	var ce *ConnError
	if errors.As(err, &ce) {
		return ce.Reason == reason
	}

	return false
}
