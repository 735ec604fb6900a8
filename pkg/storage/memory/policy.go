package memory

import (
	"sync"
	"time"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

type policyStore struct {
	store                map[int32]model.AppPolicy
	groupRestrictions    map[int32]model.Restrictions
	endpointRestrictions map[string]model.Restrictions
	nextID               int32
	sync.RWMutex
}

func newPolicyStore() *policyStore {
	return &policyStore{
		store:                make(map[int32]model.AppPolicy),
		groupRestrictions:    make(map[int32]model.Restrictions),
		endpointRestrictions: make(map[string]model.Restrictions),
		nextID:               1,
	}
}

func (s *policyStore) ListForGroup(groupID int32) ([]model.AppPolicy, error) {
	s.RLock()
	defer s.RUnlock()

	entries := make([]model.AppPolicy, 0)
	for _, m := range s.store {
		if m.GroupID == groupID && m.EndpointID == "" {
			entries = append(entries, m)
		}
	}

	return entries, nil
}

func (s *policyStore) ListForEndpoint(namespace, endpointID string) ([]model.AppPolicy, error) {
	s.RLock()
	defer s.RUnlock()

	entries := make([]model.AppPolicy, 0)
	for _, m := range s.store {
		if m.Namespace == namespace && m.EndpointID == endpointID {
			entries = append(entries, m)
		}
	}

	return entries, nil
}

func (s *policyStore) Create(m *model.AppPolicy) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *policyStore) Delete(id int32) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[id]; !ok {
		return storage.ErrNotFound
	}

	delete(s.store, id)

	return nil
}

func (s *policyStore) RestrictionsForGroup(groupID int32) (model.Restrictions, error) {
	s.RLock()
	defer s.RUnlock()
	return s.groupRestrictions[groupID], nil
}

func (s *policyStore) RestrictionsForEndpoint(namespace, endpointID string) (model.Restrictions, error) {
	s.RLock()
	defer s.RUnlock()
	return s.endpointRestrictions[key(namespace, endpointID)], nil
}

func (s *policyStore) SetRestrictionsForGroup(groupID int32, r model.Restrictions) error {
	s.Lock()
	defer s.Unlock()
	s.groupRestrictions[groupID] = r
	return nil
}

func (s *policyStore) SetRestrictionsForEndpoint(namespace, endpointID string, r model.Restrictions) error {
	s.Lock()
	defer s.Unlock()
	s.endpointRestrictions[key(namespace, endpointID)] = r
	return nil
}

func (s *policyStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
