package boiler

import (
	"errors"
	"fmt"
)

var (
	// ErrFuelRejected indicates the device refused a fuel change, usually a failed calibration.
	ErrFuelRejected = errors.New("fuel change rejected by device")

	// ErrFuelOutOfRange indicates a fuel change larger than the tray capacity.
	ErrFuelOutOfRange = errors.New("fuel change out of range")

	// ErrCodeMismatch indicates a pairing code the device did not accept.
	ErrCodeMismatch = errors.New("pairing code mismatch")

	// ErrInvalidCode indicates a pairing code that can't be typed on the device display.
	ErrInvalidCode = errors.New("invalid pairing code")

	// ErrNoToken indicates a device reply that should carry a token but doesn't.
	ErrNoToken = errors.New("no token in device reply")
)

// ConfigRejectedError is returned by SetConfig when the device refuses a key.
type ConfigRejectedError struct {
	Field string
}

func (e *ConfigRejectedError) Error() string {
	return fmt.Sprintf("device rejected config field %q", e.Field)
}
