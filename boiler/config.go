package boiler

import (
	"sort"
	"strconv"

	"github.com/arloliu/go-kotel/params"
)

// Well known configuration keys.
const (
	KeyOutputMaxTemp     = "tout"
	KeyInputMinTemp      = "tin"
	KeyOperationMode     = "m"
	KeyFanPulseCount     = "fanpc"
	KeyPumpStartTemp     = "tpump"
	KeyBagKg             = "bgkg"
	KeyTrayKg            = "traykg"
	KeyDisplayIntensity  = "dspli"
	KeyHeatValue         = "hval"
	KeyInputSensorAddr   = "tsinaddr"
	KeyOutputSensorAddr  = "tsoutaddr"
	KeyTrayFillKg        = "tray.tfkg"
	KeyFeeder1KgTime     = "tray.f1kgt"
	KeyFullPowerFanPower = "full.fanpw"
	KeyLowPowerFanPower  = "low.fanpw"
)

// Config is a snapshot of the device configuration as key=value text.
type Config map[string]string

// ParseConfig parses a configuration read reply.
func ParseConfig(text string) Config {
	return Config(params.Parse(text, params.LineSeparator))
}

// Encode returns the wire form of a configuration write request.
func (c Config) Encode() string {
	return params.Encode(c)
}

// Int returns the value of key as an integer.
func (c Config) Int(key string) (int, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}

	return n, true
}

// Float returns the value of key as a float.
func (c Config) Float(key string) (float64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

// Keys returns the keys of c in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
