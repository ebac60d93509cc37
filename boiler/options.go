package boiler

import (
	"errors"
	"time"

	"github.com/arloliu/go-kotel/exchange"
	"github.com/arloliu/go-kotel/logger"
)

// StatusHandler receives every status polled by Run.
type StatusHandler func(st *Status)

// StatsHandler receives every statistics snapshot polled by Run.
type StatsHandler func(st *Stats)

// ConfigHandler receives the configuration after every successful read.
type ConfigHandler func(cfg Config)

// ErrorHandler receives failures absorbed by polling loops. op names the failed operation:
// "status", "stats", "config" or "ssid".
type ErrorHandler func(op string, err error)

// ControllerConfig holds the settings of a Controller.
type ControllerConfig struct {
	statusInterval time.Duration
	statsInterval  time.Duration
	retryDelay     time.Duration
	logger         logger.Logger
	clientOpts     []exchange.ClientOption

	onStatus StatusHandler
	onStats  StatsHandler
	onConfig ConfigHandler
	onError  ErrorHandler
}

// NewControllerConfig creates a configuration from defaults overridden by opts.
func NewControllerConfig(opts ...ControllerOption) (*ControllerConfig, error) {
	cfg := &ControllerConfig{
		statusInterval: time.Second,
		statsInterval:  30 * time.Second,
		retryDelay:     time.Second,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// StatusInterval returns the status polling period.
func (cfg *ControllerConfig) StatusInterval() time.Duration { return cfg.statusInterval }

// StatsInterval returns the statistics polling period.
func (cfg *ControllerConfig) StatsInterval() time.Duration { return cfg.statsInterval }

// ControllerOption represents a functional option for configuring a ControllerConfig.
type ControllerOption interface {
	apply(*ControllerConfig) error
}

type controllerOptFunc struct {
	name      string
	applyFunc func(*ControllerConfig) error
}

func (c *controllerOptFunc) apply(cfg *ControllerConfig) error {
	return c.applyFunc(cfg)
}

func newControllerOptFunc(name string, f func(*ControllerConfig) error) *controllerOptFunc {
	return &controllerOptFunc{name: name, applyFunc: f}
}

// WithClientOptions passes options to the underlying exchange.Client.
func WithClientOptions(opts ...exchange.ClientOption) ControllerOption {
	return newControllerOptFunc("WithClientOptions", func(cfg *ControllerConfig) error {
		cfg.clientOpts = append(cfg.clientOpts, opts...)
		return nil
	})
}

// WithStatusInterval sets the status polling period. It should be between 100ms and 1 minute.
func WithStatusInterval(val time.Duration) ControllerOption {
	return newControllerOptFunc("WithStatusInterval", func(cfg *ControllerConfig) error {
		if val < 100*time.Millisecond || val > time.Minute {
			return errors.New("invalid status interval, should be in range of [100ms, 1m]")
		}
		cfg.statusInterval = val

		return nil
	})
}

// WithStatsInterval sets the statistics polling period. It should be between 1 second and 1 hour.
func WithStatsInterval(val time.Duration) ControllerOption {
	return newControllerOptFunc("WithStatsInterval", func(cfg *ControllerConfig) error {
		if val < time.Second || val > time.Hour {
			return errors.New("invalid stats interval, should be in range of [1s, 1h]")
		}
		cfg.statsInterval = val

		return nil
	})
}

// WithRetryDelay sets the pause between attempts of ReadConfig and SetConfig.
func WithRetryDelay(val time.Duration) ControllerOption {
	return newControllerOptFunc("WithRetryDelay", func(cfg *ControllerConfig) error {
		if val < 10*time.Millisecond || val > time.Minute {
			return errors.New("invalid retry delay, should be in range of [10ms, 1m]")
		}
		cfg.retryDelay = val

		return nil
	})
}

// WithLogger sets the logger of the controller and its client.
func WithLogger(l logger.Logger) ControllerOption {
	return newControllerOptFunc("WithLogger", func(cfg *ControllerConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithStatusHandler sets the handler receiving polled status.
func WithStatusHandler(h StatusHandler) ControllerOption {
	return newControllerOptFunc("WithStatusHandler", func(cfg *ControllerConfig) error {
		cfg.onStatus = h
		return nil
	})
}

// WithStatsHandler sets the handler receiving polled statistics.
func WithStatsHandler(h StatsHandler) ControllerOption {
	return newControllerOptFunc("WithStatsHandler", func(cfg *ControllerConfig) error {
		cfg.onStats = h
		return nil
	})
}

// WithConfigHandler sets the handler receiving configuration reads.
func WithConfigHandler(h ConfigHandler) ControllerOption {
	return newControllerOptFunc("WithConfigHandler", func(cfg *ControllerConfig) error {
		cfg.onConfig = h
		return nil
	})
}

// WithErrorHandler sets the handler receiving absorbed polling errors.
func WithErrorHandler(h ErrorHandler) ControllerOption {
	return newControllerOptFunc("WithErrorHandler", func(cfg *ControllerConfig) error {
		cfg.onError = h
		return nil
	})
}
