package frame

import (
	"fmt"
	"math"
)

// FieldType identifies the wire representation of a field.
type FieldType uint8

const (
	Uint8 FieldType = iota + 1
	Int8
	Uint16
	Int16
	Uint32
	Uint64
)

// Size returns the width of the type in bytes, or 0 for an unsupported type.
func (t FieldType) Size() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32:
		return 4
	case Uint64:
		return 8
	default:
		return 0
	}
}

// String returns the textual tag of the type.
func (t FieldType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	default:
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
}

// ParseFieldType maps a textual tag such as "int16" to its FieldType.
func ParseFieldType(tag string) (FieldType, error) {
	switch tag {
	case "uint8":
		return Uint8, nil
	case "int8":
		return Int8, nil
	case "uint16":
		return Uint16, nil
	case "int16":
		return Int16, nil
	case "uint32":
		return Uint32, nil
	case "uint64":
		return Uint64, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFieldType, tag)
	}
}

func (t FieldType) signed() bool {
	return t == Int8 || t == Int16
}

// bounds returns the magnitude limits of the type: the largest positive value and the
// largest magnitude a negative value may have.
func (t FieldType) bounds() (maxPos uint64, maxNeg uint64) {
	switch t {
	case Uint8:
		return math.MaxUint8, 0
	case Int8:
		return math.MaxInt8, -math.MinInt8
	case Uint16:
		return math.MaxUint16, 0
	case Int16:
		return math.MaxInt16, -math.MinInt16
	case Uint32:
		return math.MaxUint32, 0
	case Uint64:
		return math.MaxUint64, 0
	default:
		return 0, 0
	}
}

// Field is one named, typed entry of a Schema.
type Field struct {
	Type FieldType
	Name string
}
