package boiler

import (
	"fmt"

	"github.com/arloliu/go-kotel/frame"
)

// FuelChange reports fuel added to or removed from the tray.
type FuelChange struct {
	// Kg is the amount added, negative when fuel was taken out. Ignored when Full is set.
	Kg int16
	// Calibrate recalibrates the feeder rate from the consumption since the last change.
	Calibrate bool
	// Absolute makes Kg the new tray content instead of a difference.
	Absolute bool
	// Full marks the tray as filled to its capacity.
	Full bool
}

// Validate checks the change against the tray capacity in kilograms.
func (f FuelChange) Validate(trayKg int) error {
	if f.Full {
		return nil
	}
	if int(f.Kg) < -trayKg || int(f.Kg) > trayKg {
		return fmt.Errorf("%w: %d kg, tray holds %d kg", ErrFuelOutOfRange, f.Kg, trayKg)
	}

	return nil
}

// Encode returns the wire form of f.
func (f FuelChange) Encode() []byte {
	rec := frame.Record{
		"kgchg":    f.Kg,
		"kalib":    flag(f.Calibrate),
		"absnow":   flag(f.Absolute),
		"full":     flag(f.Full),
		"reserved": int8(0),
	}
	if f.Full {
		rec["kgchg"] = int16(0)
	}
	buf, _ := frame.Encode(SetFuelSchema, rec)

	return buf
}

// DecodeFuelChange decodes a set fuel payload.
func DecodeFuelChange(payload []byte) (FuelChange, error) {
	rec, err := frame.Decode(SetFuelSchema, payload)
	if err != nil {
		return FuelChange{}, err
	}

	return FuelChange{
		Kg:        rec["kgchg"].(int16),
		Calibrate: rec["kalib"].(int8) != 0,
		Absolute:  rec["absnow"].(int8) != 0,
		Full:      rec["full"].(int8) != 0,
	}, nil
}

func flag(b bool) int8 {
	if b {
		return 1
	}

	return 0
}
