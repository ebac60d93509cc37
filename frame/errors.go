package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFieldType indicates a schema entry naming a type the codec can't handle.
	ErrUnsupportedFieldType = errors.New("unsupported field type")

	// ErrMalformedFrame indicates a buffer shorter than the schema requires.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrMissingField indicates a record lacking a field named by the schema.
	ErrMissingField = errors.New("missing field")

	// ErrValueOutOfRange indicates a record value that is not an integer or does not fit its field.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrDuplicateField indicates a schema naming the same field twice.
	ErrDuplicateField = errors.New("duplicate field")
)

// FieldError describes a codec failure on a specific field.
type FieldError struct {
	Schema string
	Field  string
	Offset int
	Err    error
	Detail string
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("frame %s: field %q at offset %d: %v", e.Schema, e.Field, e.Offset, e.Err)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}

	return msg
}

func (e *FieldError) Unwrap() error { return e.Err }
