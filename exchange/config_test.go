package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-kotel/logger"
	"github.com/arloliu/go-kotel/token"
)

func TestNewClientConfig_Defaults(t *testing.T) {
	require := require.New(t)

	cfg, err := NewClientConfig()
	require.NoError(err)
	require.Equal(10*time.Second, cfg.IdleTimeout())
	require.Equal(10*time.Second, cfg.OpenTimeout())
	require.Equal(time.Second, cfg.ReconnectDelay())
	require.NotNil(cfg.Tokens())
	require.Empty(cfg.Tokens().Get())
}

func TestNewClientConfig_Options(t *testing.T) {
	require := require.New(t)

	store, err := token.NewStore(nil)
	require.NoError(err)

	cfg, err := NewClientConfig(
		WithIdleTimeout(3*time.Second),
		WithOpenTimeout(2*time.Second),
		WithReconnectDelay(500*time.Millisecond),
		WithEventQueueSize(8),
		WithTokenStore(store),
		WithLogger(logger.GetLogger()),
	)
	require.NoError(err)
	require.Equal(3*time.Second, cfg.IdleTimeout())
	require.Equal(2*time.Second, cfg.OpenTimeout())
	require.Equal(500*time.Millisecond, cfg.ReconnectDelay())
	require.Equal(8, cfg.eventQueueSize)
	require.Same(store, cfg.Tokens())
}

func TestNewClientConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  ClientOption
	}{
		{"idle too short", WithIdleTimeout(time.Millisecond)},
		{"idle too long", WithIdleTimeout(time.Hour)},
		{"open too short", WithOpenTimeout(0)},
		{"reconnect too long", WithReconnectDelay(2 * time.Minute)},
		{"queue size", WithEventQueueSize(0)},
		{"nil store", WithTokenStore(nil)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClientConfig(tt.opt)
			require.Error(t, err)
		})
	}
}
