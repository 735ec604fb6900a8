package hub

import (
	"hash/fnv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/model"
)

const overlayShardCount = 16

type overlayRecord struct {
	live       model.Telemetry
	generation uint64
	updatedAt  time.Time
}

type overlayShard struct {
	sync.RWMutex
	records map[string]*overlayRecord
}

// Overlay keeps the live-reported telemetry per endpoint. Reads merge the
// live record over the persisted baseline, live wins field by field.
//
// Every update carries the generation of the connection that produced it;
// an update whose generation is behind the registry's current generation
// for the id is a stale in-flight write from a replaced connection and is
// discarded.
type Overlay struct {
	shards   [overlayShardCount]*overlayShard
	registry *Registry
}

func NewOverlay(registry *Registry) *Overlay {
	o := &Overlay{registry: registry}
	for i := range o.shards {
		o.shards[i] = &overlayShard{records: make(map[string]*overlayRecord)}
	}
	return o
}

func (o *Overlay) shard(endpointID string) *overlayShard {
	h := fnv.New32a()
	h.Write([]byte(endpointID))
	return o.shards[h.Sum32()%overlayShardCount]
}

// Update merges the partial telemetry into the endpoint's live record,
// field-level overwrite, last write wins. Returns false if the update was
// discarded as stale.
func (o *Overlay) Update(endpointID string, generation uint64, partial model.Telemetry) bool {
	if current := o.registry.Generation(endpointID); generation != current {
		log.Warnf("overlay discards stale telemetry for endpoint '%s' (generation %d, current %d)",
			endpointID, generation, current)
		return false
	}

	s := o.shard(endpointID)
	s.Lock()
	defer s.Unlock()

	rec, ok := s.records[endpointID]
	if !ok || rec.generation != generation {
		rec = &overlayRecord{generation: generation}
		s.records[endpointID] = rec
	}
	rec.live = rec.live.Merge(partial)
	rec.updatedAt = time.Now().Round(time.Second).UTC()

	return true
}

// Read combines the live record over the supplied persisted baseline. A
// live field that is absent never shadows a present baseline value.
func (o *Overlay) Read(endpointID string, baseline model.Telemetry) model.Telemetry {
	s := o.shard(endpointID)
	s.RLock()
	defer s.RUnlock()

	rec, ok := s.records[endpointID]
	if !ok {
		return baseline
	}

	return baseline.Merge(rec.live)
}

// Live returns the raw live record, without the baseline underneath.
func (o *Overlay) Live(endpointID string) (model.Telemetry, bool) {
	s := o.shard(endpointID)
	s.RLock()
	defer s.RUnlock()

	rec, ok := s.records[endpointID]
	if !ok {
		return model.Telemetry{}, false
	}

	return rec.live, true
}

// Forget drops the live record. Used on administrative endpoint deletion
// only; a disconnect keeps the last reported values visible.
func (o *Overlay) Forget(endpointID string) {
	s := o.shard(endpointID)
	s.Lock()
	defer s.Unlock()
	delete(s.records, endpointID)
}
