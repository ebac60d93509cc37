package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-kotel/logger"
	"github.com/arloliu/go-kotel/token"
)

// ConnectedHook is invoked, in its own goroutine, every time a connection becomes open.
// It typically issues startup requests such as reading the configuration. ctx is canceled
// when the client is closed.
//
// Note: Client.Close waits for the hook to return, so the hook must not call Close itself.
type ConnectedHook func(ctx context.Context)

// TokenRequiredHook is invoked when the device closes the connection with a code above 4000.
// The returned token is stored before the next connection attempt. No connection attempt is
// made while the hook runs.
type TokenRequiredHook func(ctx context.Context) (string, error)

// ClientConfig represents the configuration parameters of a Client.
type ClientConfig struct {
	// idleTimeout is the longest time an open connection may stay without receiving anything.
	// Defaults to 10 seconds.
	idleTimeout time.Duration

	// openTimeout bounds dialing a new connection.
	// Defaults to 10 seconds.
	openTimeout time.Duration

	// reconnectDelay is the fixed delay between a drop and the next connection attempt.
	// Defaults to 1 second.
	reconnectDelay time.Duration

	// eventQueueSize defines the buffer of the control loop's event channel.
	// Defaults to 64.
	eventQueueSize int

	// tokens provides the credential presented on every dial.
	// Defaults to an in-memory store.
	tokens *token.Store

	onConnected     ConnectedHook
	onTokenRequired TokenRequiredHook
	stateHandlers   []ConnStateChangeHandler

	logger logger.Logger
}

// NewClientConfig creates a client configuration with default values, then applies opts.
func NewClientConfig(opts ...ClientOption) (*ClientConfig, error) {
	cfg := &ClientConfig{
		idleTimeout:    10 * time.Second,
		openTimeout:    10 * time.Second,
		reconnectDelay: 1 * time.Second,
		eventQueueSize: 64,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.tokens == nil {
		store, err := token.NewStore(nil)
		if err != nil {
			return cfg, err
		}
		cfg.tokens = store
	}

	return cfg, nil
}

// IdleTimeout returns the idle timeout.
func (cfg *ClientConfig) IdleTimeout() time.Duration { return cfg.idleTimeout }

// OpenTimeout returns the open timeout.
func (cfg *ClientConfig) OpenTimeout() time.Duration { return cfg.openTimeout }

// ReconnectDelay returns the delay between a drop and the next connection attempt.
func (cfg *ClientConfig) ReconnectDelay() time.Duration { return cfg.reconnectDelay }

// Tokens returns the token store used for dialing.
func (cfg *ClientConfig) Tokens() *token.Store { return cfg.tokens }

// ClientOption represents a functional option for configuring a ClientConfig.
type ClientOption interface {
	apply(*ClientConfig) error
}

type clientOptFunc struct {
	name      string
	applyFunc func(*ClientConfig) error
}

func (c *clientOptFunc) apply(cfg *ClientConfig) error {
	if cfg == nil {
		return ErrClientConfigNil
	}

	return c.applyFunc(cfg)
}

func newClientOptFunc(name string, f func(*ClientConfig) error) *clientOptFunc {
	return &clientOptFunc{name: name, applyFunc: f}
}

// WithIdleTimeout sets the idle timeout. It should be between 100ms and 10 minutes.
func WithIdleTimeout(val time.Duration) ClientOption {
	return newClientOptFunc("WithIdleTimeout", func(cfg *ClientConfig) error {
		if val < 100*time.Millisecond || val > 10*time.Minute {
			return errors.New("invalid idle timeout, should be in range of [100ms, 10m]")
		}
		cfg.idleTimeout = val

		return nil
	})
}

// WithOpenTimeout sets the open timeout. It should be between 100ms and 2 minutes.
func WithOpenTimeout(val time.Duration) ClientOption {
	return newClientOptFunc("WithOpenTimeout", func(cfg *ClientConfig) error {
		if val < 100*time.Millisecond || val > 2*time.Minute {
			return errors.New("invalid open timeout, should be in range of [100ms, 2m]")
		}
		cfg.openTimeout = val

		return nil
	})
}

// WithReconnectDelay sets the fixed reconnect delay. It should be between 10ms and 1 minute.
func WithReconnectDelay(val time.Duration) ClientOption {
	return newClientOptFunc("WithReconnectDelay", func(cfg *ClientConfig) error {
		if val < 10*time.Millisecond || val > time.Minute {
			return errors.New("invalid reconnect delay, should be in range of [10ms, 1m]")
		}
		cfg.reconnectDelay = val

		return nil
	})
}

// WithEventQueueSize sets the buffer size of the control loop's event channel.
func WithEventQueueSize(size int) ClientOption {
	return newClientOptFunc("WithEventQueueSize", func(cfg *ClientConfig) error {
		if size < 1 {
			return errors.New("invalid event queue size, should be greater than 0")
		}
		cfg.eventQueueSize = size

		return nil
	})
}

// WithTokenStore sets the store the dial credential is read from.
func WithTokenStore(store *token.Store) ClientOption {
	return newClientOptFunc("WithTokenStore", func(cfg *ClientConfig) error {
		if store == nil {
			return errors.New("token store is nil")
		}
		cfg.tokens = store

		return nil
	})
}

// WithOnConnected sets the hook invoked every time a connection opens.
func WithOnConnected(hook ConnectedHook) ClientOption {
	return newClientOptFunc("WithOnConnected", func(cfg *ClientConfig) error {
		cfg.onConnected = hook
		return nil
	})
}

// WithOnTokenRequired sets the hook that supplies a new credential after the device refused
// the current one.
func WithOnTokenRequired(hook TokenRequiredHook) ClientOption {
	return newClientOptFunc("WithOnTokenRequired", func(cfg *ClientConfig) error {
		cfg.onTokenRequired = hook
		return nil
	})
}

// WithStateHandler adds a handler invoked on connection state changes.
func WithStateHandler(handler ConnStateChangeHandler) ClientOption {
	return newClientOptFunc("WithStateHandler", func(cfg *ClientConfig) error {
		cfg.stateHandlers = append(cfg.stateHandlers, handler)
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ClientOption {
	return newClientOptFunc("WithLogger", func(cfg *ClientConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
