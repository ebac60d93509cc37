package boiler

import (
	"fmt"
	"time"

	"github.com/arloliu/go-kotel/frame"
)

// sensorAbsent is the raw reading threshold below which a temperature sensor is missing.
// The firmware reports -32768 for a disconnected sensor.
const sensorAbsent = -10000

// Temperature is a sensor reading in degrees Celsius.
type Temperature struct {
	Value   float64
	Present bool
}

// NewTemperature converts a raw reading in tenths of a degree.
func NewTemperature(raw int16) Temperature {
	if raw < sensorAbsent {
		return Temperature{}
	}

	return Temperature{Value: float64(raw) * 0.1, Present: true}
}

func (t Temperature) String() string {
	if !t.Present {
		return "n/a"
	}

	return fmt.Sprintf("%.1f°C", t.Value)
}

// DriveMode is the regulation mode the boiler runs in.
type DriveMode uint8

const (
	DriveUnknown DriveMode = iota
	DriveManual
	DriveAutomatic
	DriveStop
	DriveInit
	DriveOther
)

func (m DriveMode) String() string {
	switch m {
	case DriveUnknown:
		return "unknown"
	case DriveManual:
		return "manual"
	case DriveAutomatic:
		return "automatic"
	case DriveStop:
		return "stop"
	case DriveInit:
		return "init"
	case DriveOther:
		return "other"
	default:
		return fmt.Sprintf("DriveMode(%d)", uint8(m))
	}
}

// AutoMode is the power level chosen by the automatic regulation.
type AutoMode uint8

const (
	AutoFullPower AutoMode = iota
	AutoLowPower
	AutoOff
	AutoNotSet
)

func (m AutoMode) String() string {
	switch m {
	case AutoFullPower:
		return "full"
	case AutoLowPower:
		return "low"
	case AutoOff:
		return "off"
	case AutoNotSet:
		return "notset"
	default:
		return fmt.Sprintf("AutoMode(%d)", uint8(m))
	}
}

// Status is a decoded reply to CmdControlStatus.
type Status struct {
	Time              time.Time
	FeederTime        uint32
	TrayOpenTime      uint32
	TrayFillTime      uint32
	TrayFillKg        int16
	BagConsumption    int16
	Output            Temperature
	OutputAmplitude   float64
	Input             Temperature
	InputAmplitude    float64
	RSSI              int16
	SimulatedTemp     bool
	InputSensorState  uint8
	OutputSensorState uint8
	Mode              DriveMode
	AutoMode          AutoMode
	TrayOpen          bool
	FeederOverheat    bool
	Pump              bool
	Feeder            bool
	// Fan is the current fan speed in percent.
	Fan uint8
}

// DecodeStatus decodes a status reply payload.
func DecodeStatus(payload []byte) (*Status, error) {
	rec, err := frame.Decode(StatusSchema, payload)
	if err != nil {
		return nil, err
	}

	return &Status{
		Time:              time.Unix(int64(rec["timestamp"].(uint32)), 0),
		FeederTime:        rec["feeder_time"].(uint32),
		TrayOpenTime:      rec["tray_open_time"].(uint32),
		TrayFillTime:      rec["tray_fill_time"].(uint32),
		TrayFillKg:        rec["tray_fill_kg"].(int16),
		BagConsumption:    rec["bag_consumption"].(int16),
		Output:            NewTemperature(rec["temp_output_value"].(int16)),
		OutputAmplitude:   float64(rec["temp_output_amp_value"].(int16)) * 0.1,
		Input:             NewTemperature(rec["temp_input_value"].(int16)),
		InputAmplitude:    float64(rec["temp_input_amp_value"].(int16)) * 0.1,
		RSSI:              rec["rssi"].(int16),
		SimulatedTemp:     rec["temp_sim"].(uint8) != 0,
		InputSensorState:  rec["temp_input_status"].(uint8),
		OutputSensorState: rec["temp_output_status"].(uint8),
		Mode:              DriveMode(rec["mode"].(uint8)),
		AutoMode:          AutoMode(rec["automode"].(uint8)),
		TrayOpen:          rec["tray_open"].(uint8) != 0,
		FeederOverheat:    rec["feeder_overheat"].(uint8) != 0,
		Pump:              rec["pump"].(uint8) != 0,
		Feeder:            rec["feeder"].(uint8) != 0,
		Fan:               rec["fan"].(uint8),
	}, nil
}

// NoOverride leaves a manual control field to the automatic regulation.
const NoOverride uint8 = 255

// manualOnSeconds is how long a manual feeder or fan switch holds between two status polls.
const manualOnSeconds = 3

// ManualControl is the payload of a status request. Timers are in seconds; NoOverride in a
// field keeps automatic control.
type ManualControl struct {
	FeederTimer uint8
	FanTimer    uint8
	FanSpeed    uint8
	ForcePump   uint8
}

// NoManualControl is the payload of a plain status poll.
var NoManualControl = ManualControl{
	FeederTimer: NoOverride,
	FanTimer:    NoOverride,
	FanSpeed:    NoOverride,
	ForcePump:   NoOverride,
}

// Encode returns the wire form of m.
func (m ManualControl) Encode() []byte {
	buf, _ := frame.Encode(ManualControlSchema, frame.Record{
		"feeder_timer": m.FeederTimer,
		"fan_timer":    m.FanTimer,
		"fan_speed":    m.FanSpeed,
		"force_pump":   m.ForcePump,
	})

	return buf
}

// DecodeManualControl decodes a status request payload.
func DecodeManualControl(payload []byte) (ManualControl, error) {
	rec, err := frame.Decode(ManualControlSchema, payload)
	if err != nil {
		return ManualControl{}, err
	}

	return ManualControl{
		FeederTimer: rec["feeder_timer"].(uint8),
		FanTimer:    rec["fan_timer"].(uint8),
		FanSpeed:    rec["fan_speed"].(uint8),
		ForcePump:   rec["force_pump"].(uint8),
	}, nil
}
