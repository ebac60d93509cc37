package boiler

import (
	"time"

	"github.com/arloliu/go-kotel/frame"
)

// Stats holds the operating counters of the device. Times are in seconds unless noted.
type Stats struct {
	FanTime       uint32
	PumpTime      uint32
	FullPowerTime uint32
	LowPowerTime  uint32
	CoolingTime   uint32
	ActiveTime    uint32
	OverheatTime  uint32
	StopTime      uint32

	FeederStartCount     uint32
	FanStartCount        uint32
	PumpStartCount       uint32
	FeederOverheatCount  uint16
	TrayOpenCount        uint16
	StartCount           uint16
	OverheatCount        uint16
	FullPowerCount       uint32
	LowPowerCount        uint32
	CoolCount            uint32
	StopCount            uint16
	TempReadFailureCount uint16

	FeederTime   uint32
	TrayOpenTime uint32
	TrayFillTime uint32
	// Feeder1KgTime is the feeder run time needed to move one kilogram of fuel.
	Feeder1KgTime   uint16
	TrayFillKg      uint16
	ConsumedKg      uint32
	ConsumedKgTotal uint32
	EEPROMErrors    uint32
	Uptime          time.Duration
}

// DecodeStats decodes a stats reply payload.
func DecodeStats(payload []byte) (*Stats, error) {
	rec, err := frame.Decode(StatsSchema, payload)
	if err != nil {
		return nil, err
	}

	u32 := func(name string) uint32 { return rec[name].(uint32) }
	u16 := func(name string) uint16 { return rec[name].(uint16) }

	return &Stats{
		FanTime:       u32("fan_time"),
		PumpTime:      u32("pump_time"),
		FullPowerTime: u32("full_power_time"),
		LowPowerTime:  u32("low_power_time"),
		CoolingTime:   u32("cooling_time"),
		ActiveTime:    u32("active_time"),
		OverheatTime:  u32("overheat_time"),
		StopTime:      u32("stop_time"),

		FeederStartCount:     u32("feeder_start_count"),
		FanStartCount:        u32("fan_start_count"),
		PumpStartCount:       u32("pump_start_count"),
		FeederOverheatCount:  u16("feeder_overheat_count"),
		TrayOpenCount:        u16("tray_open_count"),
		StartCount:           u16("start_count"),
		OverheatCount:        u16("overheat_count"),
		FullPowerCount:       u32("full_power_count"),
		LowPowerCount:        u32("low_power_count"),
		CoolCount:            u32("cool_count"),
		StopCount:            u16("stop_count"),
		TempReadFailureCount: u16("temp_read_failure_count"),

		FeederTime:      u32("feeder_time"),
		TrayOpenTime:    u32("tray_open_time"),
		TrayFillTime:    u32("tray_fill_time"),
		Feeder1KgTime:   u16("feeder_1kg_time"),
		TrayFillKg:      u16("tray_fill_kg"),
		ConsumedKg:      u32("consumed_kg"),
		ConsumedKgTotal: u32("consumed_kg_total"),
		EEPROMErrors:    u32("eeprom_errors"),
		Uptime:          time.Duration(u32("uptime")) * time.Second,
	}, nil
}
