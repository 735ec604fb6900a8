package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetryMergeLiveWins(t *testing.T) {
	battery90, battery40 := 90, 40
	charging := true
	network := "wifi"

	base := Telemetry{
		Battery:     &battery90,
		Charging:    &charging,
		NetworkType: &network,
	}
	live := Telemetry{Battery: &battery40}

	out := base.Merge(live)

	require.NotNil(t, out.Battery)
	assert.Equal(t, 40, *out.Battery)
	// Fields absent from live fall through.
	require.NotNil(t, out.Charging)
	assert.True(t, *out.Charging)
	require.NotNil(t, out.NetworkType)
	assert.Equal(t, "wifi", *out.NetworkType)
}

func TestTelemetryMergeZeroValueIsPresent(t *testing.T) {
	battery100, battery0 := 100, 0

	base := Telemetry{Battery: &battery100}
	live := Telemetry{Battery: &battery0}

	out := base.Merge(live)
	require.NotNil(t, out.Battery)
	// A reported zero is a value, not an absence.
	assert.Equal(t, 0, *out.Battery)
}

func TestTelemetryMergeApps(t *testing.T) {
	base := Telemetry{Apps: []string{"com.old.app"}}
	live := Telemetry{Apps: []string{"com.new.app", "com.other.app"}}

	out := base.Merge(live)
	// The app list is replaced wholesale, not element-merged.
	assert.Equal(t, []string{"com.new.app", "com.other.app"}, out.Apps)

	out = out.Merge(Telemetry{})
	assert.Equal(t, []string{"com.new.app", "com.other.app"}, out.Apps)
}

func TestRestrictionsMergeDisabledStaysDisabled(t *testing.T) {
	a := Restrictions{CameraDisabled: true}
	b := Restrictions{USBDisabled: true}

	out := a.Merge(b)
	assert.True(t, out.CameraDisabled)
	assert.True(t, out.USBDisabled)
	assert.False(t, out.WifiDisabled)

	// Merge is symmetric.
	assert.Equal(t, out, b.Merge(a))
}
