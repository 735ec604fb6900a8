package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/fleetware/hub/pkg/model"
)

type AppPolicyResource struct {
	ID          int32            `json:"id"`
	Namespace   string           `json:"namespace"`
	GroupID     int32            `json:"groupId,omitempty"`
	EndpointID  string           `json:"endpointId,omitempty"`
	PackageName string           `json:"packageName"`
	Type        model.PolicyType `json:"type"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time       `json:"updatedAt,omitempty"`
}

type AppPolicyListResource struct {
	Members []*AppPolicyResource `json:"members"`
}

func NewAppPolicy(m *model.AppPolicy) (out *AppPolicyResource) {
	out = &AppPolicyResource{
		ID:          m.ID,
		Namespace:   m.Namespace,
		GroupID:     m.GroupID,
		EndpointID:  m.EndpointID,
		PackageName: m.PackageName,
		Type:        m.Type,
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

func NewAppPolicyList(m []model.AppPolicy) (out *AppPolicyListResource) {
	out = &AppPolicyListResource{
		Members: make([]*AppPolicyResource, 0),
	}

	for i := range m {
		out.Members = append(out.Members, NewAppPolicy(&m[i]))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func ValidateAppPolicy(r *AppPolicyResource) (m *model.AppPolicy, err error) {
	if r.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if r.PackageName == "" {
		return nil, fmt.Errorf("packageName is required")
	}
	if r.GroupID == 0 && r.EndpointID == "" {
		return nil, fmt.Errorf("groupId or endpointId is required")
	}
	if r.GroupID != 0 && r.EndpointID != "" {
		return nil, fmt.Errorf("groupId and endpointId are mutually exclusive")
	}
	switch r.Type {
	case model.PolicyAllow, model.PolicyBlock, model.PolicyRequire:
	default:
		return nil, fmt.Errorf("type must be allow, block or require")
	}

	m = &model.AppPolicy{
		Namespace:   r.Namespace,
		GroupID:     r.GroupID,
		EndpointID:  r.EndpointID,
		PackageName: r.PackageName,
		Type:        r.Type,
	}

	return m, nil
}
