package boiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	require := require.New(t)

	cfg := ParseConfig("tout=85\r\nhval=17.00\r\ntsinaddr=28-FF-64\r\nwifi.ssid=\r\n\r\n")
	require.Equal([]string{"hval", "tout", "tsinaddr", "wifi.ssid"}, cfg.Keys())

	n, ok := cfg.Int(KeyOutputMaxTemp)
	require.True(ok)
	require.Equal(85, n)

	f, ok := cfg.Float(KeyHeatValue)
	require.True(ok)
	require.InDelta(17.0, f, 1e-9)

	_, ok = cfg.Int(KeyInputSensorAddr)
	require.False(ok)
	_, ok = cfg.Int(KeyTrayKg)
	require.False(ok)
	_, ok = cfg.Float("missing")
	require.False(ok)
}

func TestConfig_Encode(t *testing.T) {
	cfg := Config{"bgkg": "15", "wifi.ssid": "my net&co"}
	require.Equal(t, "bgkg=15&wifi.ssid=my%20net%26co", cfg.Encode())
}
