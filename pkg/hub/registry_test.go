package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal Conn used by the registry, dispatcher and
// controller tests.
type fakeConn struct {
	mu       sync.Mutex
	id       string
	open     bool
	shutdown bool
	sent     [][]byte
	sendErr  error
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, open: true}
}

func (f *fakeConn) EndpointID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeConn) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	f.open = false
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeConn) wasShutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry(nil)

	c1 := newFakeConn("dev-1")
	gen := r.Register("dev-1", c1)
	require.Equal(t, uint64(1), gen)

	conn, ok := r.Lookup("dev-1")
	require.True(t, ok)
	assert.Equal(t, c1, conn)
	assert.Equal(t, uint64(1), r.Generation("dev-1"))

	_, ok = r.Lookup("dev-2")
	assert.False(t, ok)
	assert.Equal(t, uint64(0), r.Generation("dev-2"))
}

func TestRegistryReplaceClosesPrevious(t *testing.T) {
	r := NewRegistry(nil)

	c1 := newFakeConn("dev-1")
	c2 := newFakeConn("dev-1")

	gen1 := r.Register("dev-1", c1)
	gen2 := r.Register("dev-1", c2)

	require.True(t, gen2 > gen1)
	assert.True(t, c1.wasShutdown())
	assert.False(t, c2.wasShutdown())

	conn, ok := r.Lookup("dev-1")
	require.True(t, ok)
	assert.Equal(t, c2, conn)
}

func TestRegistryStaleUnregisterIsNoOp(t *testing.T) {
	r := NewRegistry(nil)

	c1 := newFakeConn("dev-1")
	c2 := newFakeConn("dev-1")

	r.Register("dev-1", c1)
	r.Register("dev-1", c2)

	// The replaced connection's deferred close must not remove the new
	// registration.
	require.False(t, r.Unregister("dev-1", c1))

	conn, ok := r.Lookup("dev-1")
	require.True(t, ok)
	assert.Equal(t, c2, conn)

	require.True(t, r.Unregister("dev-1", c2))
	_, ok = r.Lookup("dev-1")
	assert.False(t, ok)
}

func TestRegistryGenerationMovesForwardAcrossReconnects(t *testing.T) {
	r := NewRegistry(nil)

	c1 := newFakeConn("dev-1")
	gen1 := r.Register("dev-1", c1)
	require.True(t, r.Unregister("dev-1", c1))

	c2 := newFakeConn("dev-1")
	gen2 := r.Register("dev-1", c2)

	assert.True(t, gen2 > gen1, "generation must survive unregister")
}

func TestRegistryNotify(t *testing.T) {
	changes := make([]PresenceChange, 0)
	r := NewRegistry(func(change PresenceChange) {
		changes = append(changes, change)
	})

	c1 := newFakeConn("dev-1")
	r.Register("dev-1", c1)
	r.Unregister("dev-1", c1)

	require.Len(t, changes, 2)
	assert.True(t, changes[0].Connected)
	assert.False(t, changes[1].Connected)
	assert.Equal(t, changes[0].Generation, changes[1].Generation)
}

func TestRegistrySnapshotAll(t *testing.T) {
	r := NewRegistry(nil)

	r.Register("dev-1", newFakeConn("dev-1"))
	r.Register("dev-2", newFakeConn("dev-2"))
	r.Register("dev-3", newFakeConn("dev-3"))

	infos := r.SnapshotAll()
	require.Len(t, infos, 3)

	seen := make(map[string]bool)
	for _, info := range infos {
		seen[info.EndpointID] = true
	}
	assert.True(t, seen["dev-1"] && seen["dev-2"] && seen["dev-3"])
}
