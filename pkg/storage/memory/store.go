package memory

import "github.com/fleetware/hub/pkg/storage"

// Store contains all memory-based sub-stores for managing the persistent
// models. It backs tests and single-node development setups.
type store struct {
	endpoints   *endpointStore
	groups      *groupStore
	policies    *policyStore
	assignments *assignmentStore
	events      *eventStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	return &store{
		endpoints:   newEndpointStore(),
		groups:      newGroupStore(),
		policies:    newPolicyStore(),
		assignments: newAssignmentStore(),
		events:      newEventStore(),
	}
}

// Endpoints returns a sub-store for managing the Endpoint model
func (s *store) Endpoints() storage.EndpointStore {
	return s.endpoints
}

// Groups returns a sub-store for managing the Group model
func (s *store) Groups() storage.GroupStore {
	return s.groups
}

// Policies returns a sub-store for managing app policies and restrictions
func (s *store) Policies() storage.PolicyStore {
	return s.policies
}

// Assignments returns a sub-store for managing endpoint-user assignments
func (s *store) Assignments() storage.AssignmentStore {
	return s.assignments
}

// Events returns a sub-store for managing the Event model
func (s *store) Events() storage.EventStore {
	return s.events
}
