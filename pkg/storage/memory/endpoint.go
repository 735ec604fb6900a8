package memory

import (
	"sync"
	"time"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

type endpointStore struct {
	store  map[string]model.Endpoint
	nextID int32
	sync.RWMutex
}

func newEndpointStore() *endpointStore {
	return &endpointStore{
		store:  make(map[string]model.Endpoint),
		nextID: 1,
	}
}

func key(namespace, endpointID string) string {
	return namespace + "/" + endpointID
}

func (s *endpointStore) FetchAll(namespace string) (map[string]model.Endpoint, error) {
	s.RLock()
	defer s.RUnlock()
	models := make(map[string]model.Endpoint)

	for _, m := range s.store {
		if m.Namespace == namespace {
			models[m.EndpointID] = m
		}
	}

	return models, nil
}

func (s *endpointStore) FindByEndpointID(namespace, endpointID string) (*model.Endpoint, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[key(namespace, endpointID)]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *endpointStore) Create(m *model.Endpoint) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[key(m.Namespace, m.EndpointID)] = *m

	return nil
}

func (s *endpointStore) Upsert(m *model.Endpoint) error {
	s.Lock()
	defer s.Unlock()

	existing, ok := s.store[key(m.Namespace, m.EndpointID)]
	if !ok {
		m.ID = s.getNextID()
		m.CreatedAt = time.Now().Round(time.Second).UTC()
	} else {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	}
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[key(m.Namespace, m.EndpointID)] = *m

	return nil
}

func (s *endpointStore) UpdateLastSeen(namespace, endpointID string) error {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[key(namespace, endpointID)]
	if !ok {
		return storage.ErrNotFound
	}

	m.LastSeenAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = m.LastSeenAt
	s.store[key(namespace, endpointID)] = m

	return nil
}

func (s *endpointStore) Delete(namespace, endpointID string) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[key(namespace, endpointID)]; !ok {
		return storage.ErrNotFound
	}

	delete(s.store, key(namespace, endpointID))

	return nil
}

func (s *endpointStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
