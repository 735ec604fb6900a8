package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/fleetware/hub/pkg/model"
)

type GroupResource struct {
	ID        int32      `json:"id"`
	Namespace string     `json:"namespace"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type GroupListResource struct {
	Members []*GroupResource `json:"members"`
}

type GroupMemberResource struct {
	EndpointID string `json:"endpointId"`
}

type GroupMemberListResource struct {
	Members []*GroupMemberResource `json:"members"`
}

func NewGroup(m *model.Group) (out *GroupResource) {
	out = &GroupResource{
		ID:        m.ID,
		Namespace: m.Namespace,
		Name:      m.Name,
	}

	if !m.CreatedAt.IsZero() {
		out.CreatedAt = &time.Time{}
		*out.CreatedAt = m.CreatedAt.Round(time.Second)
	}
	if !m.UpdatedAt.IsZero() {
		out.UpdatedAt = &time.Time{}
		*out.UpdatedAt = m.UpdatedAt.Round(time.Second)
	}

	return // out
}

func NewGroupList(m map[int32]model.Group) (out *GroupListResource) {
	out = &GroupListResource{
		Members: make([]*GroupResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewGroup(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func NewGroupMemberList(endpointIDs []string) (out *GroupMemberListResource) {
	out = &GroupMemberListResource{
		Members: make([]*GroupMemberResource, 0),
	}

	for _, id := range endpointIDs {
		out.Members = append(out.Members, &GroupMemberResource{EndpointID: id})
	}

	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].EndpointID < out.Members[j].EndpointID
	})

	return // out
}

func ValidateGroup(r *GroupResource) (m *model.Group, err error) {
	if r.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if r.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	m = &model.Group{
		Namespace: r.Namespace,
		Name:      r.Name,
	}

	return m, nil
}
