package boiler

import "github.com/arloliu/go-kotel/frame"

// StatusSchema is the reply to CmdControlStatus.
var StatusSchema = frame.MustSchema("status",
	frame.Field{Type: frame.Uint32, Name: "timestamp"},
	frame.Field{Type: frame.Uint32, Name: "feeder_time"},
	frame.Field{Type: frame.Uint32, Name: "tray_open_time"},
	frame.Field{Type: frame.Uint32, Name: "tray_fill_time"},
	frame.Field{Type: frame.Int16, Name: "tray_fill_kg"},
	frame.Field{Type: frame.Int16, Name: "bag_consumption"},
	frame.Field{Type: frame.Int16, Name: "temp_output_value"},
	frame.Field{Type: frame.Int16, Name: "temp_output_amp_value"},
	frame.Field{Type: frame.Int16, Name: "temp_input_value"},
	frame.Field{Type: frame.Int16, Name: "temp_input_amp_value"},
	frame.Field{Type: frame.Int16, Name: "rssi"},
	frame.Field{Type: frame.Uint8, Name: "temp_sim"},
	frame.Field{Type: frame.Uint8, Name: "temp_input_status"},
	frame.Field{Type: frame.Uint8, Name: "temp_output_status"},
	frame.Field{Type: frame.Uint8, Name: "mode"},
	frame.Field{Type: frame.Uint8, Name: "automode"},
	frame.Field{Type: frame.Uint8, Name: "tray_open"},
	frame.Field{Type: frame.Uint8, Name: "feeder_overheat"},
	frame.Field{Type: frame.Uint8, Name: "pump"},
	frame.Field{Type: frame.Uint8, Name: "feeder"},
	frame.Field{Type: frame.Uint8, Name: "fan"},
)

// ManualControlSchema is the payload of CmdControlStatus.
var ManualControlSchema = frame.MustSchema("manual_control",
	frame.Field{Type: frame.Uint8, Name: "feeder_timer"},
	frame.Field{Type: frame.Uint8, Name: "fan_timer"},
	frame.Field{Type: frame.Uint8, Name: "fan_speed"},
	frame.Field{Type: frame.Uint8, Name: "force_pump"},
)

// SetFuelSchema is the payload of CmdSetFuel.
var SetFuelSchema = frame.MustSchema("set_fuel",
	frame.Field{Type: frame.Int16, Name: "kgchg"},
	frame.Field{Type: frame.Int8, Name: "kalib"},
	frame.Field{Type: frame.Int8, Name: "absnow"},
	frame.Field{Type: frame.Int8, Name: "full"},
	frame.Field{Type: frame.Int8, Name: "reserved"},
)

// StatsSchema is the reply to CmdGetStats.
var StatsSchema = frame.MustSchema("stats",
	frame.Field{Type: frame.Uint32, Name: "fan_time"},
	frame.Field{Type: frame.Uint32, Name: "pump_time"},
	frame.Field{Type: frame.Uint32, Name: "full_power_time"},
	frame.Field{Type: frame.Uint32, Name: "low_power_time"},
	frame.Field{Type: frame.Uint32, Name: "cooling_time"},
	frame.Field{Type: frame.Uint32, Name: "active_time"},
	frame.Field{Type: frame.Uint32, Name: "overheat_time"},
	frame.Field{Type: frame.Uint32, Name: "stop_time"},
	frame.Field{Type: frame.Uint32, Name: "reserved1"},
	frame.Field{Type: frame.Uint32, Name: "reserved2"},
	frame.Field{Type: frame.Uint32, Name: "feeder_start_count"},
	frame.Field{Type: frame.Uint32, Name: "fan_start_count"},
	frame.Field{Type: frame.Uint32, Name: "pump_start_count"},
	frame.Field{Type: frame.Uint16, Name: "feeder_overheat_count"},
	frame.Field{Type: frame.Uint16, Name: "tray_open_count"},
	frame.Field{Type: frame.Uint16, Name: "start_count"},
	frame.Field{Type: frame.Uint16, Name: "overheat_count"},
	frame.Field{Type: frame.Uint32, Name: "full_power_count"},
	frame.Field{Type: frame.Uint32, Name: "low_power_count"},
	frame.Field{Type: frame.Uint32, Name: "cool_count"},
	frame.Field{Type: frame.Uint16, Name: "stop_count"},
	frame.Field{Type: frame.Uint16, Name: "temp_read_failure_count"},
	frame.Field{Type: frame.Uint16, Name: "reserved3"},
	frame.Field{Type: frame.Uint16, Name: "reserved4"},
	frame.Field{Type: frame.Uint32, Name: "feeder_time"},
	frame.Field{Type: frame.Uint32, Name: "tray_open_time"},
	frame.Field{Type: frame.Uint32, Name: "tray_fill_time"},
	frame.Field{Type: frame.Uint16, Name: "feeder_1kg_time"},
	frame.Field{Type: frame.Uint16, Name: "tray_fill_kg"},
	frame.Field{Type: frame.Uint32, Name: "consumed_kg"},
	frame.Field{Type: frame.Uint32, Name: "consumed_kg_total"},
	frame.Field{Type: frame.Uint32, Name: "eeprom_errors"},
	frame.Field{Type: frame.Uint32, Name: "uptime"},
)
