// Package frame encodes and decodes the fixed-width little-endian records exchanged with the
// boiler controller.
//
// A Schema is an ordered list of typed fields. It is validated and its total width computed
// once, when it is created; afterwards it is immutable and safe for concurrent use.
//
//	var ManualControl = frame.MustSchema("manual_control",
//	    frame.Field{Type: frame.Uint8, Name: "feeder_timer"},
//	    frame.Field{Type: frame.Uint8, Name: "fan_timer"},
//	)
//
//	buf, err := frame.Encode(ManualControl, frame.Record{"feeder_timer": 255, "fan_timer": 3})
//	rec, err := frame.Decode(ManualControl, buf)
//
// Decode stores every value with the Go type matching its field (uint8, int8, uint16, int16,
// uint32, uint64). Encode accepts any Go integer that fits the field. A missing field, a value
// out of range or a short buffer is reported as an error; the codec never substitutes zero
// values or truncates. Scaling and sentinel values belong to the caller.
package frame
