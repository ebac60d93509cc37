package devicetest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/arloliu/go-kotel/boiler"
	"github.com/arloliu/go-kotel/exchange"
	"github.com/arloliu/go-kotel/frame"
	"github.com/arloliu/go-kotel/params"
)

// Handler returns the HTTP handler serving the device endpoints.
func (d *Device) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/"+exchange.SocketPath, websocket.Server{Handler: d.serveSocket})
	mux.HandleFunc("/"+boiler.CodePath, d.serveCode)

	return mux
}

// NewServer starts an HTTP server for d, closed with the test.
func NewServer(t testing.TB, d *Device) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		d.Kick(exchange.CloseNormal)
		srv.Close()
	})

	return srv
}

func (d *Device) serveCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case len(body) == 0:
		code := d.generateCodeLocked()
		d.logger.Info("pairing code on display", "code", code)
		w.WriteHeader(http.StatusAccepted)
	case d.code != "" && string(body) == d.code:
		d.code = ""
		tok := d.issueTokenLocked()
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "token="+tok+"\r\n")
	default:
		http.Error(w, "code doesn't match", http.StatusConflict)
	}
}

func (d *Device) serveSocket(ws *websocket.Conn) {
	if code := d.checkToken(ws.Request().URL.RawQuery); code != 0 {
		d.logger.Debug("refused connection", "code", code)
		_ = ws.WriteClose(code)
		_ = ws.Close()
		return
	}

	d.mu.Lock()
	d.conns[ws] = struct{}{}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.conns, ws)
		d.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		var msg []byte
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			return
		}
		if len(msg) == 0 {
			continue
		}

		reply, text, ok := d.handle(msg[0], msg[1:])
		if !ok {
			continue
		}

		out := append([]byte{msg[0]}, reply...)
		var err error
		if text {
			err = websocket.Message.Send(ws, string(out))
		} else {
			err = websocket.Message.Send(ws, out)
		}
		if err != nil {
			return
		}

		if msg[0] == byte(boiler.CmdReboot) {
			return
		}
	}
}

// checkToken validates the query string of a handshake. The token must be the first parameter.
func (d *Device) checkToken(rawQuery string) int {
	tok, found := strings.CutPrefix(rawQuery, "token=")
	if !found {
		return CloseMissingToken
	}
	if i := strings.IndexByte(tok, '&'); i >= 0 {
		tok = tok[:i]
	}
	if !d.ValidToken(tok) {
		return CloseBadToken
	}

	return 0
}

// handle executes one command and returns its reply payload and frame type. ok is false when
// the firmware would not answer.
func (d *Device) handle(cmd byte, payload []byte) (reply []byte, text bool, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.silenced[cmd] {
		return nil, false, false
	}

	switch exchange.Cmd(cmd) {
	case boiler.CmdControlStatus:
		if len(payload) != boiler.ManualControlSchema.Size() {
			return nil, false, false
		}
		mc, err := boiler.DecodeManualControl(payload)
		if err != nil {
			return nil, false, false
		}
		d.manual = mc
		return d.statusRecord(), false, true

	case boiler.CmdSetFuel:
		if len(payload) != boiler.SetFuelSchema.Size() {
			return nil, false, false
		}
		f, err := boiler.DecodeFuelChange(payload)
		if err != nil {
			return nil, false, false
		}
		if !d.applyFuel(f) {
			return []byte{1}, false, true
		}
		return nil, false, true

	case boiler.CmdGetConfig:
		return []byte(d.configText()), true, true

	case boiler.CmdSetConfig:
		values, err := params.ParseRequest(string(payload))
		if err != nil {
			return []byte("?"), true, true
		}
		return []byte(d.updateConfig(values)), true, true

	case boiler.CmdGetStats:
		return d.statsRecord(), false, true

	case boiler.CmdEnumTasks:
		return []byte("feeder 12 1000\r\nfan 40 250\r\ntemp_sensors 310 10000\r\ndisplay 5 500\r\n"), true, true

	case boiler.CmdGenerateCode:
		return []byte(d.generateCodeLocked()), true, true

	case boiler.CmdUnpairAll:
		clear(d.tokens)
		return []byte("token=" + d.issueTokenLocked() + "\r\n"), true, true

	case boiler.CmdReboot:
		return nil, true, true

	case boiler.CmdClearStats:
		d.clearCount++
		d.started = time.Now()
		return nil, true, true
	}

	if cmd <= byte(boiler.SectorCounters2) {
		return d.sector(boiler.Sector(cmd)), false, true
	}

	return nil, false, false
}

func (d *Device) sector(s boiler.Sector) []byte {
	switch s {
	case boiler.SectorWiFiSSID:
		buf := make([]byte, 33)
		copy(buf, d.ssid)
		return buf
	case boiler.SectorWiFiPwd:
		if d.password == "" {
			return nil
		}
		return []byte("****")
	default:
		return make([]byte, 16)
	}
}

func (d *Device) statusRecord() []byte {
	fill := atoi(d.config["tray.tfkg"])
	buf, err := frame.Encode(boiler.StatusSchema, frame.Record{
		"timestamp":             uint32(time.Now().Unix()),
		"feeder_time":           uint32(36000),
		"tray_open_time":        uint32(1200),
		"tray_fill_time":        uint32(30000),
		"tray_fill_kg":          fill,
		"bag_consumption":       atoi(d.config["tray.f1kgt"]),
		"temp_output_value":     d.outputTemp,
		"temp_output_amp_value": int16(12),
		"temp_input_value":      d.inputTemp,
		"temp_input_amp_value":  int16(8),
		"rssi":                  int16(-61),
		"temp_sim":              uint8(0),
		"temp_input_status":     uint8(0),
		"temp_output_status":    uint8(0),
		"mode":                  uint8(boiler.DriveAutomatic),
		"automode":              uint8(boiler.AutoFullPower),
		"tray_open":             uint8(0),
		"feeder_overheat":       uint8(0),
		"pump":                  uint8(1),
		"feeder":                uint8(0),
		"fan":                   uint8(60),
	})
	if err != nil {
		d.logger.Error("failed to encode status", "error", err)
	}

	return buf
}

func (d *Device) statsRecord() []byte {
	rec := make(frame.Record)
	for _, f := range boiler.StatsSchema.Fields() {
		if f.Type == frame.Uint16 {
			rec[f.Name] = uint16(0)
		} else {
			rec[f.Name] = uint32(0)
		}
	}
	rec["fan_time"] = uint32(7200)
	rec["pump_time"] = uint32(9000)
	rec["start_count"] = uint16(42)
	rec["feeder_1kg_time"] = uint16(atoi(d.config["tray.f1kgt"]))
	rec["tray_fill_kg"] = uint16(atoi(d.config["tray.tfkg"]))
	rec["consumed_kg_total"] = uint32(1530)
	rec["uptime"] = uint32(time.Since(d.started) / time.Second)

	buf, err := frame.Encode(boiler.StatsSchema, rec)
	if err != nil {
		d.logger.Error("failed to encode stats", "error", err)
	}

	return buf
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
