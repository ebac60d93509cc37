// Package devicetest emulates a boiler controller for tests and demos.
//
// A Device serves the same endpoints as the firmware: the WebSocket command channel at /api/ws
// and the pairing endpoint at /api/code. Replies follow the firmware: binary records for status,
// statistics, fuel and storage sectors, text for configuration, tasks, pairing and maintenance
// commands, no reply at all for unknown or malformed commands.
package devicetest

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"
	"golang.org/x/net/websocket"

	"github.com/arloliu/go-kotel/boiler"
	"github.com/arloliu/go-kotel/logger"
)

// Close codes sent when the token in the handshake is refused.
const (
	CloseMissingToken = 4020
	CloseBadToken     = 4090
)

// raw reading of a disconnected temperature sensor
const sensorMissing int16 = -32768

// Device is an emulated boiler controller. It is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	logger logger.Logger

	tokens   map[string]struct{}
	code     string
	config   map[string]string
	ssid     string
	password string

	outputTemp int16
	inputTemp  int16
	manual     boiler.ManualControl
	fuelFail   bool
	silenced   map[byte]bool
	started    time.Time
	clearCount int

	conns map[*websocket.Conn]struct{}
}

// New creates a device accepting the given tokens.
func New(tokens ...string) *Device {
	d := &Device{
		logger:     logger.GetLogger().With("component", "devicetest"),
		tokens:     make(map[string]struct{}),
		config:     defaultConfig(),
		ssid:       "boiler-room",
		password:   "secret",
		outputTemp: 652,
		inputTemp:  418,
		manual:     boiler.NoManualControl,
		silenced:   make(map[byte]bool),
		started:    time.Now(),
		conns:      make(map[*websocket.Conn]struct{}),
	}
	for _, tok := range tokens {
		d.tokens[tok] = struct{}{}
	}

	return d
}

func defaultConfig() map[string]string {
	return map[string]string{
		"tout":         "85",
		"tin":          "60",
		"touts":        "10",
		"tins":         "10",
		"m":            "1",
		"fanpc":        "4",
		"tpump":        "40",
		"srlog":        "0",
		"bgkg":         "15",
		"traykg":       "225",
		"dspli":        "7",
		"hval":         "17.00",
		"full.burnout": "8",
		"full.fanpw":   "60",
		"full.fueling": "20",
		"low.burnout":  "5",
		"low.fanpw":    "40",
		"low.fueling":  "30",
		"tsinaddr":     "28-FF-64-1E-0C-16-03-7A",
		"tsoutaddr":    "28-FF-4B-83-0B-16-04-1D",
		"tray.tfkg":    "120",
		"tray.f1kgt":   "240",
	}
}

// byte sized configuration keys, everything else but hval is free text
var uint8Keys = map[string]bool{
	"tout": true, "tin": true, "touts": true, "tins": true, "m": true, "fanpc": true,
	"tpump": true, "srlog": true, "bgkg": true, "traykg": true, "dspli": true,
	"full.burnout": true, "full.fanpw": true, "full.fueling": true,
	"low.burnout": true, "low.fanpw": true, "low.fueling": true,
}

// SetLogger replaces the device logger.
func (d *Device) SetLogger(l logger.Logger) {
	d.mu.Lock()
	d.logger = l
	d.mu.Unlock()
}

// IssueToken adds a new valid token and returns it.
func (d *Device) IssueToken() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.issueTokenLocked()
}

func (d *Device) issueTokenLocked() string {
	tok := xid.New().String()
	d.tokens[tok] = struct{}{}

	return tok
}

// RevokeTokens invalidates every token issued so far.
func (d *Device) RevokeTokens() {
	d.mu.Lock()
	clear(d.tokens)
	d.mu.Unlock()
}

// ValidToken reports whether tok is accepted.
func (d *Device) ValidToken(tok string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.tokens[tok]

	return ok
}

// Code returns the pairing code on display, or "" when none is shown.
func (d *Device) Code() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.code
}

func (d *Device) generateCodeLocked() string {
	b := make([]byte, boiler.CodeLength)
	for i := range b {
		b[i] = byte('A' + rand.IntN(26))
	}
	d.code = string(b)

	return d.code
}

// SetTemperatures sets the raw sensor readings in tenths of a degree.
func (d *Device) SetTemperatures(output, input int16) {
	d.mu.Lock()
	d.outputTemp, d.inputTemp = output, input
	d.mu.Unlock()
}

// DisconnectSensors makes both temperature sensors report as missing.
func (d *Device) DisconnectSensors() {
	d.SetTemperatures(sensorMissing, sensorMissing)
}

// LastManualControl returns the payload of the last status request.
func (d *Device) LastManualControl() boiler.ManualControl {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.manual
}

// FailFuel makes fuel changes fail like a failed calibration.
func (d *Device) FailFuel(fail bool) {
	d.mu.Lock()
	d.fuelFail = fail
	d.mu.Unlock()
}

// Silence stops or resumes replies to cmd.
func (d *Device) Silence(cmd byte, on bool) {
	d.mu.Lock()
	d.silenced[cmd] = on
	d.mu.Unlock()
}

// ConfigValue returns a configuration value.
func (d *Device) ConfigValue(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.config[key]
}

// ClearCount returns how many times the statistics were cleared.
func (d *Device) ClearCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.clearCount
}

// ConnCount returns the number of open WebSocket connections.
func (d *Device) ConnCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.conns)
}

// Kick closes every open connection with the given close code.
func (d *Device) Kick(code int) {
	d.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(d.conns))
	for ws := range d.conns {
		conns = append(conns, ws)
	}
	d.mu.Unlock()

	for _, ws := range conns {
		_ = ws.WriteClose(code)
		_ = ws.Close()
	}
}

// configText renders the configuration the way the firmware prints it.
func (d *Device) configText() string {
	keys := make([]string, 0, len(d.config))
	for k := range d.config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []byte
	for _, k := range keys {
		out = fmt.Appendf(out, "%s=%s\r\n", k, d.config[k])
	}
	out = fmt.Appendf(out, "wifi.ssid=%s\r\n", d.ssid)
	if d.password != "" {
		out = append(out, "wifi.password=****\r\n"...)
	} else {
		out = append(out, "wifi.password=\r\n"...)
	}

	return string(out)
}

// updateConfig applies values and returns the first refused key, or "".
func (d *Device) updateConfig(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		switch {
		case k == "wifi.ssid":
			d.ssid = v
			continue
		case k == "wifi.password":
			d.password = v
			continue
		case uint8Keys[k]:
			if n, err := strconv.Atoi(v); err != nil || n < 0 || n > 255 {
				return k
			}
		case k == "hval":
			if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 || f > 25.5 {
				return k
			}
		default:
			if _, known := d.config[k]; !known {
				return k
			}
		}
		d.config[k] = v
	}

	return ""
}

// applyFuel updates the tray fill level and reports success.
func (d *Device) applyFuel(f boiler.FuelChange) bool {
	if d.fuelFail {
		return false
	}

	trayKg, _ := strconv.Atoi(d.config["traykg"])
	fill, _ := strconv.Atoi(d.config["tray.tfkg"])
	switch {
	case f.Full:
		fill = trayKg
	case f.Absolute:
		fill = int(f.Kg)
	default:
		fill += int(f.Kg)
	}
	fill = max(0, min(fill, trayKg))
	d.config["tray.tfkg"] = strconv.Itoa(fill)

	return true
}
