package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	require := require.New(t)

	got := Parse("mode=1\r\n temp_target = 72 \r\n=orphan\r\n\r\nflag\r\nurl=a=b", "")
	require.Equal(map[string]string{
		"mode":        "1",
		"temp_target": "72",
		"flag":        "",
		"url":         "a=b",
	}, got)
}

func TestParse_ValueKeepsEquals(t *testing.T) {
	got := Parse("wifi.password=a=b=c\r\nbgkg==15", "")
	require.Equal(t, map[string]string{"wifi.password": "a=b=c", "bgkg": "=15"}, got)
}

func TestParse_CustomSeparator(t *testing.T) {
	got := Parse("bgkg=15&traykg=40", PairSeparator)
	require.Equal(t, map[string]string{"bgkg": "15", "traykg": "40"}, got)
}

func TestEscape(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"a b", "a%20b"},
		{"x=y&z", "x%3Dy%26z"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"100%", "100%25"},
		{"čau", "%C4%8Dau"},
		{"a+b/c?", "a%2Bb%2Fc%3F"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, Escape(tt.input), tt.input)
	}
}

func TestEncode(t *testing.T) {
	require := require.New(t)

	body := Encode(map[string]string{"traykg": "40", "bgkg": "15", "ssid": "my net"})
	require.Equal("bgkg=15&ssid=my%20net&traykg=40", body)

	back, err := ParseRequest(body)
	require.NoError(err)
	require.Equal(map[string]string{"traykg": "40", "bgkg": "15", "ssid": "my net"}, back)

	require.Empty(Encode(nil))
}

func TestParseRequest_Invalid(t *testing.T) {
	_, err := ParseRequest("a=%zz")
	require.Error(t, err)
}
