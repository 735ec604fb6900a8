package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/fleetware/hub/pkg/storage"
)

// store contains all PostgreSQL based sub-stores for managing the models
type store struct {
	endpoints   *endpointStore
	groups      *groupStore
	policies    *policyStore
	assignments *assignmentStore
	events      *eventStore
}

// NewStore creates a new PostgreSQL based Storage interface
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		endpoints:   newEndpointStore(db),
		groups:      newGroupStore(db),
		policies:    newPolicyStore(db),
		assignments: newAssignmentStore(db),
		events:      newEventStore(db),
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
