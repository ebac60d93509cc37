package boiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverrides_Next(t *testing.T) {
	require := require.New(t)

	var o overrides
	require.Equal(NoManualControl, o.next())

	o.setFeeder(true)
	o.setFanSpeed(80)
	o.setForcePump(true)

	require.Equal(ManualControl{FeederTimer: 3, FanTimer: NoOverride, FanSpeed: 80, ForcePump: 1}, o.next())
	// the feeder keeps running, one-shot switches are consumed
	require.Equal(ManualControl{FeederTimer: 3, FanTimer: NoOverride, FanSpeed: NoOverride, ForcePump: NoOverride}, o.next())

	o.setFeeder(false)
	o.setFan(false)
	require.Equal(ManualControl{FeederTimer: 0, FanTimer: 0, FanSpeed: NoOverride, ForcePump: NoOverride}, o.next())
	require.Equal(NoManualControl, o.next())
}
