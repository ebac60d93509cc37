package boiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-kotel/exchange"
	"github.com/arloliu/go-kotel/internal/pool"
	"github.com/arloliu/go-kotel/logger"
	"github.com/arloliu/go-kotel/params"
)

// Controller exposes the commands of one boiler controller.
//
// It owns an exchange.Client and keeps the latest status, statistics and configuration. Every
// time a connection opens it reloads the configuration, the WiFi network name and the
// statistics, like the device's own web page does.
type Controller struct {
	cfg    *ControllerConfig
	client *exchange.Client
	logger logger.Logger

	config   *xsync.MapOf[string, string]
	status   atomic.Pointer[Status]
	stats    atomic.Pointer[Stats]
	ssid     atomic.Pointer[string]
	starting atomic.Bool
	manual   overrides
}

// TaskInfo describes one firmware task as listed by CmdEnumTasks.
type TaskInfo struct {
	Name          string
	RunTime       uint64
	ScheduledTime uint64
}

// NewController creates a controller reaching the device through dialer.
func NewController(ctx context.Context, dialer exchange.Dialer, opts ...ControllerOption) (*Controller, error) {
	cfg, err := NewControllerConfig(opts...)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:    cfg,
		logger: cfg.logger,
		config: xsync.NewMapOf[string, string](),
	}

	clientOpts := make([]exchange.ClientOption, 0, len(cfg.clientOpts)+2)
	clientOpts = append(clientOpts, exchange.WithLogger(cfg.logger))
	clientOpts = append(clientOpts, cfg.clientOpts...)
	clientOpts = append(clientOpts, exchange.WithOnConnected(c.onConnected))

	c.client, err = exchange.NewClient(ctx, dialer, clientOpts...)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Client returns the underlying exchange client.
func (c *Controller) Client() *exchange.Client {
	return c.client
}

// Close closes the client. Pending commands fail with exchange.ErrClientClosed.
func (c *Controller) Close() error {
	return c.client.Close()
}

// Status sends mc and returns the status the device answers with.
func (c *Controller) Status(ctx context.Context, mc ManualControl) (*Status, error) {
	reply, err := c.client.SendRequest(ctx, CmdControlStatus, mc.Encode())
	if err != nil {
		return nil, err
	}

	st, err := DecodeStatus(reply)
	if err != nil {
		return nil, err
	}
	c.status.Store(st)

	return st, nil
}

// PollStatus requests the status carrying the pending manual switches.
func (c *Controller) PollStatus(ctx context.Context) (*Status, error) {
	return c.Status(ctx, c.manual.next())
}

// LastStatus returns the most recent status, or nil before the first one.
func (c *Controller) LastStatus() *Status {
	return c.status.Load()
}

// SetFeeder switches the feeder on or off manually on the next status polls.
func (c *Controller) SetFeeder(on bool) { c.manual.setFeeder(on) }

// SetFan switches the fan on or off manually on the next status polls.
func (c *Controller) SetFan(on bool) { c.manual.setFan(on) }

// SetFanSpeed sets the fan speed in percent with the next status poll.
func (c *Controller) SetFanSpeed(pct uint8) { c.manual.setFanSpeed(pct) }

// ForcePump forces the pump on or releases it with the next status poll.
func (c *Controller) ForcePump(on bool) { c.manual.setForcePump(on) }

// Stats reads the operating counters.
func (c *Controller) Stats(ctx context.Context) (*Stats, error) {
	reply, err := c.client.SendRequest(ctx, CmdGetStats, nil)
	if err != nil {
		return nil, err
	}

	st, err := DecodeStats(reply)
	if err != nil {
		return nil, err
	}
	c.stats.Store(st)

	return st, nil
}

// LastStats returns the most recent statistics, or nil before the first read.
func (c *Controller) LastStats() *Stats {
	return c.stats.Load()
}

// ReadConfig reads the configuration, retrying while the connection fails, and refreshes the
// cached copy.
func (c *Controller) ReadConfig(ctx context.Context) (Config, error) {
	for {
		text, err := c.client.SendText(ctx, CmdGetConfig, "")
		if err == nil {
			cfg := ParseConfig(text)
			for k, v := range cfg {
				c.config.Store(k, v)
			}
			c.config.Range(func(k, _ string) bool {
				if _, ok := cfg[k]; !ok {
					c.config.Delete(k)
				}
				return true
			})
			if h := c.cfg.onConfig; h != nil {
				h(cfg)
			}

			return cfg, nil
		}

		if !errors.Is(err, exchange.ErrConnectionFailure) {
			return nil, err
		}
		c.reportError("config", err)

		if err := pool.Sleep(ctx, c.cfg.retryDelay); err != nil {
			return nil, err
		}
	}
}

// Config returns a copy of the cached configuration.
func (c *Controller) Config() Config {
	cfg := make(Config, c.config.Size())
	c.config.Range(func(k, v string) bool {
		cfg[k] = v
		return true
	})

	return cfg
}

// SetConfig writes values, retrying while the connection fails. A refused key yields a
// *ConfigRejectedError and leaves the cache untouched.
func (c *Controller) SetConfig(ctx context.Context, values Config) error {
	if len(values) == 0 {
		return nil
	}
	body := values.Encode()

	for {
		reply, err := c.client.SendText(ctx, CmdSetConfig, body)
		if err == nil {
			if field := strings.TrimSpace(reply); field != "" {
				return &ConfigRejectedError{Field: field}
			}
			for k, v := range values {
				c.config.Store(k, v)
			}

			return nil
		}

		if !errors.Is(err, exchange.ErrConnectionFailure) {
			return err
		}
		c.logger.Warn("failed to write config, retrying", "method", "SetConfig", "error", err)

		if err := pool.Sleep(ctx, c.cfg.retryDelay); err != nil {
			return err
		}
	}
}

// SetFuel reports a fuel change. When the tray capacity is known, changes beyond it are refused
// without contacting the device.
func (c *Controller) SetFuel(ctx context.Context, f FuelChange) error {
	if v, ok := c.config.Load(KeyTrayKg); ok {
		if trayKg, err := strconv.Atoi(v); err == nil {
			if err := f.Validate(trayKg); err != nil {
				return err
			}
		}
	}

	reply, err := c.client.SendRequest(ctx, CmdSetFuel, f.Encode())
	if err != nil {
		return err
	}
	if len(reply) != 0 {
		return ErrFuelRejected
	}

	// the tray fill level is part of the configuration
	if _, err := c.ReadConfig(ctx); err != nil {
		c.logger.Warn("failed to reload config", "method", "SetFuel", "error", err)
	}

	return nil
}

// ReadSector returns the raw content of a storage sector.
func (c *Controller) ReadSector(ctx context.Context, s Sector) ([]byte, error) {
	return c.client.SendRequest(ctx, s.Cmd(), nil)
}

// ReadSSID returns the name of the WiFi network the device joins.
func (c *Controller) ReadSSID(ctx context.Context) (string, error) {
	raw, err := c.ReadSector(ctx, SectorWiFiSSID)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	ssid := string(raw)
	c.ssid.Store(&ssid)

	return ssid, nil
}

// SSID returns the last network name read, or "" before the first read.
func (c *Controller) SSID() string {
	if p := c.ssid.Load(); p != nil {
		return *p
	}

	return ""
}

// PairingCode makes the device generate a new pairing code and returns it.
func (c *Controller) PairingCode(ctx context.Context) (string, error) {
	code, err := c.client.SendText(ctx, CmdGenerateCode, "")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(code), nil
}

// Unpair invalidates every token issued by the device. The device answers with a token for
// this client, which replaces the stored one.
func (c *Controller) Unpair(ctx context.Context) error {
	reply, err := c.client.SendText(ctx, CmdUnpairAll, "")
	if err != nil {
		return err
	}

	tok := params.Parse(reply, params.LineSeparator)["token"]
	if tok == "" {
		return ErrNoToken
	}

	return c.client.Config().Tokens().Set(tok)
}

// Logout forgets the stored token and drops the connection. The next connection attempt is
// refused until a new token is obtained.
func (c *Controller) Logout() error {
	if err := c.client.Config().Tokens().Clear(); err != nil {
		return err
	}

	return c.client.Reset()
}

// ClearStats resets the operating counters.
func (c *Controller) ClearStats(ctx context.Context) error {
	_, err := c.client.SendRequest(ctx, CmdClearStats, nil)
	return err
}

// Tasks lists the firmware's scheduled tasks.
func (c *Controller) Tasks(ctx context.Context) ([]TaskInfo, error) {
	text, err := c.client.SendText(ctx, CmdEnumTasks, "")
	if err != nil {
		return nil, err
	}

	var tasks []TaskInfo
	for _, line := range strings.Split(text, params.LineSeparator) {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		run, err1 := strconv.ParseUint(fields[1], 10, 64)
		sched, err2 := strconv.ParseUint(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("malformed task line %q", line)
		}
		tasks = append(tasks, TaskInfo{Name: fields[0], RunTime: run, ScheduledTime: sched})
	}

	return tasks, nil
}

// Reboot restarts the device. The connection drops shortly after the reply.
func (c *Controller) Reboot(ctx context.Context) error {
	_, err := c.client.SendRequest(ctx, CmdReboot, nil)
	return err
}

// onConnected reloads configuration, network name and statistics after a connection opens.
// A run still in progress from an earlier connection makes it a no-op.
func (c *Controller) onConnected(ctx context.Context) {
	if !c.starting.CompareAndSwap(false, true) {
		return
	}
	defer c.starting.Store(false)

	if _, err := c.ReadConfig(ctx); err != nil {
		c.logger.Debug("startup config read aborted", "error", err)
		return
	}
	if _, err := c.ReadSSID(ctx); err != nil {
		c.reportError("ssid", err)
	}
	c.refreshStats(ctx)
}

func (c *Controller) refreshStatus(ctx context.Context) {
	st, err := c.PollStatus(ctx)
	if err != nil {
		c.reportError("status", err)
		return
	}
	if h := c.cfg.onStatus; h != nil {
		h(st)
	}
}

func (c *Controller) refreshStats(ctx context.Context) {
	st, err := c.Stats(ctx)
	if err != nil {
		c.reportError("stats", err)
		return
	}
	if h := c.cfg.onStats; h != nil {
		h(st)
	}
}

func (c *Controller) reportError(op string, err error) {
	c.logger.Debug("request failed", "op", op, "error", err)
	if h := c.cfg.onError; h != nil {
		h(op, err)
	}
}
