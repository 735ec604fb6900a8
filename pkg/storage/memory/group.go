package memory

import (
	"sync"
	"time"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

type membership struct {
	groupID    int32
	endpointID string
}

type groupStore struct {
	store   map[int32]model.Group
	members []membership
	nextID  int32
	sync.RWMutex
}

func newGroupStore() *groupStore {
	return &groupStore{
		store:   make(map[int32]model.Group),
		members: make([]membership, 0),
		nextID:  1,
	}
}

func (s *groupStore) FetchAll(namespace string) (map[int32]model.Group, error) {
	s.RLock()
	defer s.RUnlock()
	models := make(map[int32]model.Group)

	for id, m := range s.store {
		if m.Namespace == namespace {
			models[id] = m
		}
	}

	return models, nil
}

func (s *groupStore) FindByID(id int32) (*model.Group, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *groupStore) Create(m *model.Group) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *groupStore) Delete(id int32) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[id]; !ok {
		return storage.ErrNotFound
	}

	delete(s.store, id)

	remaining := make([]membership, 0, len(s.members))
	for _, mb := range s.members {
		if mb.groupID != id {
			remaining = append(remaining, mb)
		}
	}
	s.members = remaining

	return nil
}

func (s *groupStore) AddMember(groupID int32, endpointID string) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[groupID]; !ok {
		return storage.ErrNotFound
	}

	for _, mb := range s.members {
		if mb.groupID == groupID && mb.endpointID == endpointID {
			return nil
		}
	}

	s.members = append(s.members, membership{groupID: groupID, endpointID: endpointID})

	return nil
}

func (s *groupStore) RemoveMember(groupID int32, endpointID string) error {
	s.Lock()
	defer s.Unlock()

	for i, mb := range s.members {
		if mb.groupID == groupID && mb.endpointID == endpointID {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return nil
		}
	}

	return storage.ErrNotFound
}

func (s *groupStore) Members(groupID int32) ([]string, error) {
	s.RLock()
	defer s.RUnlock()

	if _, ok := s.store[groupID]; !ok {
		return nil, storage.ErrNotFound
	}

	ids := make([]string, 0)
	for _, mb := range s.members {
		if mb.groupID == groupID {
			ids = append(ids, mb.endpointID)
		}
	}

	return ids, nil
}

func (s *groupStore) ListForEndpoint(namespace, endpointID string) ([]model.Group, error) {
	s.RLock()
	defer s.RUnlock()

	groups := make([]model.Group, 0)
	for _, mb := range s.members {
		if mb.endpointID != endpointID {
			continue
		}
		if g, ok := s.store[mb.groupID]; ok && g.Namespace == namespace {
			groups = append(groups, g)
		}
	}

	return groups, nil
}

func (s *groupStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
