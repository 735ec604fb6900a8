package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/fleetware/hub/pkg/model"
)

type EndpointResource struct {
	ID             int32           `json:"id"`
	Namespace      string          `json:"namespace"`
	EndpointID     string          `json:"endpointId"`
	Kind           model.Kind      `json:"kind"`
	Model          string          `json:"model,omitempty"`
	OSVersion      string          `json:"osVersion,omitempty"`
	StorageTotal   int64           `json:"storageTotal,omitempty"`
	MemoryTotal    int64           `json:"memoryTotal,omitempty"`
	Compliant      bool            `json:"compliant"`
	Telemetry      model.Telemetry `json:"telemetry"`
	SessionTimeout int             `json:"sessionTimeout"`
	PingInterval   int             `json:"pingInterval"`
	LastSeenAt     *time.Time      `json:"lastSeenAt,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"`
}

type EndpointListResource struct {
	Members []*EndpointResource `json:"members"`
}

func NewEndpoint(m *model.Endpoint) (out *EndpointResource) {
	out = &EndpointResource{
		ID:             m.ID,
		Namespace:      m.Namespace,
		EndpointID:     m.EndpointID,
		Kind:           m.Kind,
		Model:          m.Model,
		OSVersion:      m.OSVersion,
		StorageTotal:   m.StorageTotal,
		MemoryTotal:    m.MemoryTotal,
		Compliant:      m.Compliant,
		Telemetry:      m.Telemetry,
		SessionTimeout: m.SessionTimeout,
		PingInterval:   m.PingInterval,
	}

	if !m.LastSeenAt.IsZero() {
		out.LastSeenAt = &time.Time{}
		*out.LastSeenAt = m.LastSeenAt.Round(time.Second)
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

func NewEndpointList(m map[string]model.Endpoint) (out *EndpointListResource) {
	out = &EndpointListResource{
		Members: make([]*EndpointResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewEndpoint(&elem))
	}

	// Default sort by endpoint id
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].EndpointID < out.Members[j].EndpointID
	})

	return // out
}

func ValidateEndpoint(r *EndpointResource) (m *model.Endpoint, err error) {
	if r.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if r.EndpointID == "" {
		return nil, fmt.Errorf("endpointId is required")
	}
	if r.Kind != model.KindMobile && r.Kind != model.KindDesktop {
		return nil, fmt.Errorf("kind must be mobile or desktop")
	}

	m = &model.Endpoint{
		Namespace:      r.Namespace,
		EndpointID:     r.EndpointID,
		Kind:           r.Kind,
		Model:          r.Model,
		OSVersion:      r.OSVersion,
		StorageTotal:   r.StorageTotal,
		MemoryTotal:    r.MemoryTotal,
		Compliant:      r.Compliant,
		SessionTimeout: r.SessionTimeout,
		PingInterval:   r.PingInterval,
	}

	return m, nil
}
