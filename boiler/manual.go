package boiler

import "sync"

// overrides holds the manual switches carried by the next status polls.
//
// The feeder and the fan stay on for manualOnSeconds after every poll while switched on, so
// they are repeated until switched off; switching off is sent once. Fan speed and forced pump
// are sent once.
type overrides struct {
	mu        sync.Mutex
	feeder    *bool
	fan       *bool
	fanSpeed  *uint8
	forcePump *bool
}

func (o *overrides) setFeeder(on bool) {
	o.mu.Lock()
	o.feeder = &on
	o.mu.Unlock()
}

func (o *overrides) setFan(on bool) {
	o.mu.Lock()
	o.fan = &on
	o.mu.Unlock()
}

func (o *overrides) setFanSpeed(pct uint8) {
	o.mu.Lock()
	o.fanSpeed = &pct
	o.mu.Unlock()
}

func (o *overrides) setForcePump(on bool) {
	o.mu.Lock()
	o.forcePump = &on
	o.mu.Unlock()
}

// next returns the payload of the next status poll and consumes the one-shot switches.
func (o *overrides) next() ManualControl {
	o.mu.Lock()
	defer o.mu.Unlock()

	mc := NoManualControl
	if o.feeder != nil {
		mc.FeederTimer = timer(*o.feeder)
		if !*o.feeder {
			o.feeder = nil
		}
	}
	if o.fan != nil {
		mc.FanTimer = timer(*o.fan)
		if !*o.fan {
			o.fan = nil
		}
	}
	if o.fanSpeed != nil {
		mc.FanSpeed = *o.fanSpeed
		o.fanSpeed = nil
	}
	if o.forcePump != nil {
		mc.ForcePump = uint8(flag(*o.forcePump))
		o.forcePump = nil
	}

	return mc
}

func timer(on bool) uint8 {
	if on {
		return manualOnSeconds
	}

	return 0
}
