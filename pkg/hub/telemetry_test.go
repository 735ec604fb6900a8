package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetware/hub/pkg/model"
)

func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestOverlayLiveWinsOverBaseline(t *testing.T) {
	r := NewRegistry(nil)
	o := NewOverlay(r)

	gen := r.Register("dev-1", newFakeConn("dev-1"))

	require.True(t, o.Update("dev-1", gen, model.Telemetry{Battery: intPtr(40)}))

	baseline := model.Telemetry{
		Battery:     intPtr(90),
		Charging:    boolPtr(true),
		NetworkType: strPtr("wifi"),
	}

	merged := o.Read("dev-1", baseline)
	require.NotNil(t, merged.Battery)
	assert.Equal(t, 40, *merged.Battery)
	// Fields the live record never reported fall through to the baseline.
	require.NotNil(t, merged.Charging)
	assert.True(t, *merged.Charging)
	require.NotNil(t, merged.NetworkType)
	assert.Equal(t, "wifi", *merged.NetworkType)
}

func TestOverlayPartialUpdatesAccumulate(t *testing.T) {
	r := NewRegistry(nil)
	o := NewOverlay(r)

	gen := r.Register("dev-1", newFakeConn("dev-1"))

	require.True(t, o.Update("dev-1", gen, model.Telemetry{Battery: intPtr(55)}))
	require.True(t, o.Update("dev-1", gen, model.Telemetry{SSID: strPtr("office")}))
	require.True(t, o.Update("dev-1", gen, model.Telemetry{Battery: intPtr(54)}))

	live, ok := o.Live("dev-1")
	require.True(t, ok)
	assert.Equal(t, 54, *live.Battery)
	assert.Equal(t, "office", *live.SSID)
}

func TestOverlayDiscardsStaleGeneration(t *testing.T) {
	r := NewRegistry(nil)
	o := NewOverlay(r)

	c1 := newFakeConn("dev-1")
	gen1 := r.Register("dev-1", c1)
	require.True(t, o.Update("dev-1", gen1, model.Telemetry{Battery: intPtr(60)}))

	// A new connection replaces c1; its generation moves forward.
	gen2 := r.Register("dev-1", newFakeConn("dev-1"))
	require.True(t, gen2 > gen1)

	// An in-flight write from the replaced connection must not clobber
	// state owned by the new one.
	assert.False(t, o.Update("dev-1", gen1, model.Telemetry{Battery: intPtr(1)}))

	require.True(t, o.Update("dev-1", gen2, model.Telemetry{Battery: intPtr(80)}))
	live, ok := o.Live("dev-1")
	require.True(t, ok)
	assert.Equal(t, 80, *live.Battery)
}

func TestOverlayReadWithoutRecordReturnsBaseline(t *testing.T) {
	r := NewRegistry(nil)
	o := NewOverlay(r)

	baseline := model.Telemetry{Battery: intPtr(33)}
	merged := o.Read("dev-9", baseline)
	require.NotNil(t, merged.Battery)
	assert.Equal(t, 33, *merged.Battery)
}

func TestOverlayForget(t *testing.T) {
	r := NewRegistry(nil)
	o := NewOverlay(r)

	gen := r.Register("dev-1", newFakeConn("dev-1"))
	require.True(t, o.Update("dev-1", gen, model.Telemetry{Battery: intPtr(10)}))

	o.Forget("dev-1")
	_, ok := o.Live("dev-1")
	assert.False(t, ok)
}
