package storage

import "github.com/fleetware/hub/pkg/model"

// Interface is implemented by the storage
type Interface interface {
	Endpoints() EndpointStore
	Groups() GroupStore
	Policies() PolicyStore
	Assignments() AssignmentStore
	Events() EventStore
}

// EndpointStore is responsible for managing the Endpoint model. Upsert
// writes the persisted baseline for an endpoint id, creating the record
// with defaults if it does not exist yet.
type EndpointStore interface {
	FetchAll(namespace string) (map[string]model.Endpoint, error)
	FindByEndpointID(namespace, endpointID string) (*model.Endpoint, error)
	Create(m *model.Endpoint) error
	Upsert(m *model.Endpoint) error
	UpdateLastSeen(namespace, endpointID string) error
	Delete(namespace, endpointID string) error
}

// GroupStore is responsible for managing the Group model and its
// membership relation.
type GroupStore interface {
	FetchAll(namespace string) (map[int32]model.Group, error)
	FindByID(id int32) (*model.Group, error)
	Create(m *model.Group) error
	Delete(id int32) error
	AddMember(groupID int32, endpointID string) error
	RemoveMember(groupID int32, endpointID string) error
	Members(groupID int32) ([]string, error)
	ListForEndpoint(namespace, endpointID string) ([]model.Group, error)
}

// PolicyStore manages app policy entries and restriction sets for both
// groups and individual endpoints.
type PolicyStore interface {
	ListForGroup(groupID int32) ([]model.AppPolicy, error)
	ListForEndpoint(namespace, endpointID string) ([]model.AppPolicy, error)
	Create(m *model.AppPolicy) error
	Delete(id int32) error
	RestrictionsForGroup(groupID int32) (model.Restrictions, error)
	RestrictionsForEndpoint(namespace, endpointID string) (model.Restrictions, error)
	SetRestrictionsForGroup(groupID int32, r model.Restrictions) error
	SetRestrictionsForEndpoint(namespace, endpointID string, r model.Restrictions) error
}

// AssignmentStore manages the 1:1-at-a-time endpoint-to-user relation.
// Set fails with a ConflictError if the user is already bound to another
// endpoint.
type AssignmentStore interface {
	GetForEndpoint(namespace, endpointID string) (*model.Assignment, error)
	Set(namespace, endpointID, userID string) (*model.Assignment, error)
	Clear(namespace, endpointID string) error
}

// EventStore is responsible for managing the Event model
type EventStore interface {
	FetchAll(namespace string) (map[int32]model.Event, error)
	FindByID(id int32) (*model.Event, error)
	Create(m *model.Event) error
}
