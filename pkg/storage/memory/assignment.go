package memory

import (
	"sync"
	"time"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

type assignmentStore struct {
	store  map[string]model.Assignment
	nextID int32
	sync.RWMutex
}

func newAssignmentStore() *assignmentStore {
	return &assignmentStore{
		store:  make(map[string]model.Assignment),
		nextID: 1,
	}
}

func (s *assignmentStore) GetForEndpoint(namespace, endpointID string) (*model.Assignment, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[key(namespace, endpointID)]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *assignmentStore) Set(namespace, endpointID, userID string) (*model.Assignment, error) {
	s.Lock()
	defer s.Unlock()

	// A user is bound to at most one endpoint at a time. Binding an
	// already-bound user fails instead of transferring the assignment.
	bound := make([]string, 0)
	for _, m := range s.store {
		if m.Namespace == namespace && m.UserID == userID && m.EndpointID != endpointID {
			bound = append(bound, m.EndpointID)
		}
	}
	if len(bound) > 0 {
		return nil, &storage.ConflictError{UserID: userID, EndpointIDs: bound}
	}

	m := model.Assignment{
		Namespace:  namespace,
		EndpointID: endpointID,
		UserID:     userID,
	}

	existing, ok := s.store[key(namespace, endpointID)]
	if ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		m.ID = s.getNextID()
		m.CreatedAt = time.Now().Round(time.Second).UTC()
	}
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[key(namespace, endpointID)] = m

	return &m, nil
}

func (s *assignmentStore) Clear(namespace, endpointID string) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[key(namespace, endpointID)]; !ok {
		return storage.ErrNotFound
	}

	delete(s.store, key(namespace, endpointID))

	return nil
}

func (s *assignmentStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
