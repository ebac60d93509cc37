package frame

import (
	"encoding/binary"
	"fmt"
)

// Record holds decoded field values keyed by field name.
type Record map[string]any

// Int returns the named value as int64. ok is false when the field is absent, not an
// integer or a uint64 beyond the int64 range.
func (r Record) Int(name string) (int64, bool) {
	neg, mag, ok := magnitude(r[name])
	if !ok {
		return 0, false
	}
	if neg {
		if mag > 1<<63 {
			return 0, false
		}
		return -int64(mag-1) - 1, true
	}
	if mag > 1<<63-1 {
		return 0, false
	}

	return int64(mag), true
}

// Uint returns the named value as uint64. ok is false when the field is absent, not an
// integer or negative.
func (r Record) Uint(name string) (uint64, bool) {
	neg, mag, ok := magnitude(r[name])
	if !ok || neg {
		return 0, false
	}

	return mag, true
}

// Decode reads the fields of s from buf in order, starting at offset 0.
// Bytes beyond s.Size() are ignored.
func Decode(s *Schema, buf []byte) (Record, error) {
	rec := make(Record, len(s.fields))
	off := 0

	for _, f := range s.fields {
		size := f.Type.Size()
		if size == 0 {
			return nil, &FieldError{Schema: s.name, Field: f.Name, Offset: off, Err: ErrUnsupportedFieldType, Detail: f.Type.String()}
		}
		if off+size > len(buf) {
			return nil, &FieldError{
				Schema: s.name, Field: f.Name, Offset: off, Err: ErrMalformedFrame,
				Detail: fmt.Sprintf("need %d bytes, buffer has %d", s.size, len(buf)),
			}
		}

		b := buf[off : off+size]
		switch f.Type {
		case Uint8:
			rec[f.Name] = b[0]
		case Int8:
			rec[f.Name] = int8(b[0])
		case Uint16:
			rec[f.Name] = binary.LittleEndian.Uint16(b)
		case Int16:
			rec[f.Name] = int16(binary.LittleEndian.Uint16(b))
		case Uint32:
			rec[f.Name] = binary.LittleEndian.Uint32(b)
		case Uint64:
			rec[f.Name] = binary.LittleEndian.Uint64(b)
		}
		off += size
	}

	return rec, nil
}

// Encode writes the fields of s from rec into a new buffer of exactly s.Size() bytes.
func Encode(s *Schema, rec Record) ([]byte, error) {
	buf := make([]byte, s.size)
	off := 0

	for _, f := range s.fields {
		size := f.Type.Size()
		if size == 0 {
			return nil, &FieldError{Schema: s.name, Field: f.Name, Offset: off, Err: ErrUnsupportedFieldType, Detail: f.Type.String()}
		}

		v, found := rec[f.Name]
		if !found {
			return nil, &FieldError{Schema: s.name, Field: f.Name, Offset: off, Err: ErrMissingField}
		}

		bits, err := fieldBits(f.Type, v)
		if err != nil {
			return nil, &FieldError{Schema: s.name, Field: f.Name, Offset: off, Err: ErrValueOutOfRange, Detail: err.Error()}
		}

		b := buf[off : off+size]
		switch size {
		case 1:
			b[0] = byte(bits)
		case 2:
			binary.LittleEndian.PutUint16(b, uint16(bits))
		case 4:
			binary.LittleEndian.PutUint32(b, uint32(bits))
		case 8:
			binary.LittleEndian.PutUint64(b, bits)
		}
		off += size
	}

	return buf, nil
}

// fieldBits range-checks v against t and returns its two's complement bit pattern.
func fieldBits(t FieldType, v any) (uint64, error) {
	neg, mag, ok := magnitude(v)
	if !ok {
		return 0, fmt.Errorf("%T is not an integer", v)
	}

	maxPos, maxNeg := t.bounds()
	if neg {
		if !t.signed() || mag > maxNeg {
			return 0, fmt.Errorf("-%d does not fit %s", mag, t)
		}
		return -mag, nil
	}
	if mag > maxPos {
		return 0, fmt.Errorf("%d does not fit %s", mag, t)
	}

	return mag, nil
}

// magnitude splits an integer value of any Go integer type into sign and magnitude.
func magnitude(v any) (neg bool, mag uint64, ok bool) {
	switch n := v.(type) {
	case int:
		return signedMagnitude(int64(n))
	case int8:
		return signedMagnitude(int64(n))
	case int16:
		return signedMagnitude(int64(n))
	case int32:
		return signedMagnitude(int64(n))
	case int64:
		return signedMagnitude(n)
	case uint:
		return false, uint64(n), true
	case uint8:
		return false, uint64(n), true
	case uint16:
		return false, uint64(n), true
	case uint32:
		return false, uint64(n), true
	case uint64:
		return false, n, true
	default:
		return false, 0, false
	}
}

func signedMagnitude(n int64) (bool, uint64, bool) {
	if n < 0 {
		return true, uint64(-(n + 1)) + 1, true
	}

	return false, uint64(n), true
}
