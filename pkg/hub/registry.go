package hub

import (
	"hash/fnv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const registryShardCount = 16

// PresenceInfo is one row of a registry snapshot.
type PresenceInfo struct {
	EndpointID  string
	Generation  uint64
	ConnectedAt time.Time
}

// PresenceChange is pushed to the registry's notify callback on every
// register and unregister.
type PresenceChange struct {
	EndpointID string
	Connected  bool
	Generation uint64
}

type registryEntry struct {
	conn        Conn
	generation  uint64
	connectedAt time.Time
}

type registryShard struct {
	sync.RWMutex
	entries map[string]*registryEntry
	// generations survive entry removal so a reconnect always moves the
	// generation forward.
	generations map[string]uint64
}

// Registry is the single source of truth for which endpoint is reachable
// right now. It holds no persistent state; after a process restart it is
// rebuilt from zero by reconnecting agents. The table is sharded by
// endpoint id so thousands of connections do not contend on one lock.
type Registry struct {
	shards [registryShardCount]*registryShard
	notify func(PresenceChange)
}

func NewRegistry(notify func(PresenceChange)) *Registry {
	r := &Registry{notify: notify}
	for i := range r.shards {
		r.shards[i] = &registryShard{
			entries:     make(map[string]*registryEntry),
			generations: make(map[string]uint64),
		}
	}
	return r
}

func (r *Registry) shard(endpointID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(endpointID))
	return r.shards[h.Sum32()%registryShardCount]
}

// Register stores the connection handle for the endpoint id and returns
// the new connection generation. A prior handle for the same id is
// replaced atomically and scheduled to be closed; at most one live
// connection per id exists at any instant.
func (r *Registry) Register(endpointID string, conn Conn) uint64 {
	s := r.shard(endpointID)

	s.Lock()
	prev := s.entries[endpointID]
	gen := s.generations[endpointID] + 1
	s.generations[endpointID] = gen
	s.entries[endpointID] = &registryEntry{
		conn:        conn,
		generation:  gen,
		connectedAt: time.Now().Round(time.Second).UTC(),
	}
	s.Unlock()

	if prev != nil {
		log.Warnf("registry replaces existing connection for endpoint '%s'", endpointID)
		prev.conn.Shutdown()
	}

	if r.notify != nil {
		r.notify(PresenceChange{EndpointID: endpointID, Connected: true, Generation: gen})
	}

	return gen
}

// Unregister removes the handle for the endpoint id, but only if conn is
// the currently registered one. A stale close racing a newer connection
// is a no-op.
func (r *Registry) Unregister(endpointID string, conn Conn) bool {
	s := r.shard(endpointID)

	s.Lock()
	entry, ok := s.entries[endpointID]
	if !ok || entry.conn != conn {
		s.Unlock()
		return false
	}
	gen := entry.generation
	delete(s.entries, endpointID)
	s.Unlock()

	if r.notify != nil {
		r.notify(PresenceChange{EndpointID: endpointID, Connected: false, Generation: gen})
	}

	return true
}

// Lookup returns the live connection handle for the endpoint id.
func (r *Registry) Lookup(endpointID string) (Conn, bool) {
	s := r.shard(endpointID)

	s.RLock()
	defer s.RUnlock()
	entry, ok := s.entries[endpointID]
	if !ok {
		return nil, false
	}

	return entry.conn, true
}

// Generation returns the current connection generation for the endpoint
// id. Zero means the endpoint has never connected since process start.
func (r *Registry) Generation(endpointID string) uint64 {
	s := r.shard(endpointID)

	s.RLock()
	defer s.RUnlock()
	entry, ok := s.entries[endpointID]
	if !ok {
		return 0
	}

	return entry.generation
}

// SnapshotAll returns presence info for every registered endpoint.
func (r *Registry) SnapshotAll() []PresenceInfo {
	infos := make([]PresenceInfo, 0)

	for _, s := range r.shards {
		s.RLock()
		for id, entry := range s.entries {
			infos = append(infos, PresenceInfo{
				EndpointID:  id,
				Generation:  entry.generation,
				ConnectedAt: entry.connectedAt,
			})
		}
		s.RUnlock()
	}

	return infos
}
