package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetware/hub/pkg/hub/message"
	"github.com/fleetware/hub/pkg/hub/proto"
)

type staticGroups struct {
	members map[int32][]string
	err     error
}

func (g *staticGroups) Members(groupID int32) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.members[groupID], nil
}

func TestDispatcherSendSingleTarget(t *testing.T) {
	r := NewRegistry(nil)
	d := NewDispatcher(r, &staticGroups{})

	c1 := newFakeConn("dev-1")
	r.Register("dev-1", c1)

	results, err := d.Send("dev-1", proto.NewEnvelope(proto.CommandLockDevice, nil))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results["dev-1"])
	assert.Equal(t, 1, c1.sentCount())
}

func TestDispatcherSendOfflineTarget(t *testing.T) {
	r := NewRegistry(nil)
	d := NewDispatcher(r, &staticGroups{})

	results, err := d.Send("dev-9", proto.NewEnvelope(proto.CommandReboot, nil))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ErrEndpointOffline, results["dev-9"])
}

func TestDispatcherSendAll(t *testing.T) {
	r := NewRegistry(nil)
	d := NewDispatcher(r, &staticGroups{})

	c1 := newFakeConn("dev-1")
	c2 := newFakeConn("dev-2")
	r.Register("dev-1", c1)
	r.Register("dev-2", c2)

	results, err := d.Send(message.TargetAll, proto.NewEnvelope(proto.CommandLockDevice, nil))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results["dev-1"])
	assert.NoError(t, results["dev-2"])
	assert.Equal(t, 1, c1.sentCount())
	assert.Equal(t, 1, c2.sentCount())
}

func TestDispatcherGroupFanOutReportsPartialFailure(t *testing.T) {
	r := NewRegistry(nil)
	groups := &staticGroups{members: map[int32][]string{
		7: {"dev-1", "dev-2", "dev-3"},
	}}
	d := NewDispatcher(r, groups)

	c1 := newFakeConn("dev-1")
	c3 := newFakeConn("dev-3")
	r.Register("dev-1", c1)
	r.Register("dev-3", c3)
	// dev-2 is a member but not connected.

	results, err := d.SendGroup(7, proto.NewEnvelope(proto.CommandInstallApp,
		map[string]interface{}{"package_name": "com.example.tool"}))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results["dev-1"])
	assert.Equal(t, ErrEndpointOffline, results["dev-2"])
	assert.NoError(t, results["dev-3"])

	// The reachable members still received the command.
	assert.Equal(t, 1, c1.sentCount())
	assert.Equal(t, 1, c3.sentCount())
}

func TestDispatcherClosedConnIsOffline(t *testing.T) {
	r := NewRegistry(nil)
	d := NewDispatcher(r, &staticGroups{})

	c1 := newFakeConn("dev-1")
	r.Register("dev-1", c1)
	c1.Shutdown()

	results, err := d.Send("dev-1", proto.NewEnvelope(proto.CommandShutdown, nil))
	require.NoError(t, err)
	assert.Equal(t, ErrEndpointOffline, results["dev-1"])
	assert.Equal(t, 0, c1.sentCount())
}
