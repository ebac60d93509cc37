package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Cmd is the one byte selector of a frame: either an ASCII command character such as 'c', or a
// raw numeric code such as 6.
type Cmd byte

// String returns the command character for printable selectors and the number otherwise.
func (c Cmd) String() string {
	if c > ' ' && c < 0x7f {
		return string(rune(c))
	}

	return strconv.Itoa(int(c))
}

// Message is one whole message received from or sent to the transport.
type Message struct {
	Data []byte
	// Text is true for text messages, false for binary ones.
	Text bool
}

// Transport is a message oriented duplex connection to the device.
type Transport interface {
	// Send writes one whole message.
	Send(msg Message) error
	// Receive blocks until the next message arrives. When the connection ends it returns a
	// *CloseError carrying the close code.
	Receive() (Message, error)
	// Close closes the connection and unblocks Receive.
	Close() error
}

// Dialer opens transports, presenting token as the credential.
type Dialer interface {
	Dial(ctx context.Context, token string) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, token string) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context, token string) (Transport, error) {
	return f(ctx, token)
}

// WebSocket close codes used by the client.
const (
	CloseNormal   = 1000
	CloseNoStatus = 1005
	CloseAbnormal = 1006

	// AuthCloseThreshold is the highest close code that does not demand a new credential.
	AuthCloseThreshold = 4000
)

// CloseError reports the end of a transport together with its close code.
// Connections lost without a close frame report CloseAbnormal.
type CloseError struct {
	Code int
	Err  error
}

func (e *CloseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection closed with code %d", e.Code)
	}

	return fmt.Sprintf("connection closed with code %d: %v", e.Code, e.Err)
}

func (e *CloseError) Unwrap() error { return e.Err }

// AuthRequired reports whether the peer demands a new credential.
func (e *CloseError) AuthRequired() bool {
	return e.Code > AuthCloseThreshold
}

// Is matches ErrAuthRequired for close codes above AuthCloseThreshold.
func (e *CloseError) Is(target error) bool {
	return target == ErrAuthRequired && e.AuthRequired()
}

// closeCode extracts the close code carried by err, CloseAbnormal when there is none.
func closeCode(err error) int {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}

	return CloseAbnormal
}
