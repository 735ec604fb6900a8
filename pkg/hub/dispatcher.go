package hub

import (
	log "github.com/sirupsen/logrus"

	"github.com/fleetware/hub/pkg/hub/message"
	"github.com/fleetware/hub/pkg/hub/proto"
)

// GroupResolver resolves a group id to its current member endpoint ids.
// Backed by the group store; resolution is read-through on every send.
type GroupResolver interface {
	Members(groupID int32) ([]string, error)
}

// Dispatcher validates a command against the registry and writes it to
// the target connections. Sends are write-only: the dispatcher never
// waits for an endpoint acknowledgement.
type Dispatcher struct {
	registry *Registry
	groups   GroupResolver
}

func NewDispatcher(registry *Registry, groups GroupResolver) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		groups:   groups,
	}
}

// Send routes the envelope to a literal endpoint id or, for the "all"
// sentinel, to every registered connection. The result maps each resolved
// id to nil on success or its per-target failure; a multi-target send is
// never collapsed into one aggregate result.
func (d *Dispatcher) Send(target string, env proto.Envelope) (map[string]error, error) {
	if target == message.TargetAll {
		ids := make([]string, 0)
		for _, info := range d.registry.SnapshotAll() {
			ids = append(ids, info.EndpointID)
		}
		return d.sendAll(ids, env)
	}

	return d.sendAll([]string{target}, env)
}

// SendGroup resolves the group to its current members and fans out.
func (d *Dispatcher) SendGroup(groupID int32, env proto.Envelope) (map[string]error, error) {
	ids, err := d.groups.Members(groupID)
	if err != nil {
		return nil, err
	}

	return d.sendAll(ids, env)
}

func (d *Dispatcher) sendAll(ids []string, env proto.Envelope) (map[string]error, error) {
	data, err := env.Marshal()
	if err != nil {
		return nil, err
	}

	results := make(map[string]error, len(ids))
	for _, id := range ids {
		results[id] = d.sendOne(id, data)
	}

	return results, nil
}

func (d *Dispatcher) sendOne(endpointID string, data []byte) error {
	conn, ok := d.registry.Lookup(endpointID)
	if !ok || !conn.Open() {
		return ErrEndpointOffline
	}

	if err := conn.Send(data); err != nil {
		log.Warnf("dispatcher failed to write to endpoint '%s': %s", endpointID, err.Error())
		return err
	}

	return nil
}
