package frame

import "fmt"

// Schema is an immutable, ordered list of fields with a precomputed total width.
type Schema struct {
	name   string
	fields []Field
	size   int
}

// NewSchema validates fields and returns a schema describing them in order.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{
		name:   name,
		fields: make([]Field, len(fields)),
	}
	copy(s.fields, fields)

	seen := make(map[string]struct{}, len(fields))
	for _, f := range s.fields {
		size := f.Type.Size()
		if size == 0 {
			return nil, &FieldError{Schema: name, Field: f.Name, Offset: s.size, Err: ErrUnsupportedFieldType, Detail: f.Type.String()}
		}
		if _, dup := seen[f.Name]; dup {
			return nil, &FieldError{Schema: name, Field: f.Name, Offset: s.size, Err: ErrDuplicateField}
		}
		seen[f.Name] = struct{}{}
		s.size += size
	}

	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid field list.
// It is meant for package level schema variables.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}

	return s
}

// ParseSchema builds a schema from (type tag, name) pairs such as {"int16", "temp_input_value"}.
func ParseSchema(name string, tags [][2]string) (*Schema, error) {
	fields := make([]Field, 0, len(tags))
	for i, entry := range tags {
		ft, err := ParseFieldType(entry[0])
		if err != nil {
			return nil, fmt.Errorf("frame %s: entry %d (%s): %w", name, i, entry[1], err)
		}
		fields = append(fields, Field{Type: ft, Name: entry[1]})
	}

	return NewSchema(name, fields...)
}

// Name returns the schema name used in error messages.
func (s *Schema) Name() string { return s.name }

// Size returns the total width of the record in bytes.
func (s *Schema) Size() int { return s.size }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)

	return out
}
