package resource

import (
	"fmt"
	"time"

	"github.com/fleetware/hub/pkg/model"
)

type AssignmentResource struct {
	ID         int32      `json:"id"`
	Namespace  string     `json:"namespace"`
	EndpointID string     `json:"endpointId"`
	UserID     string     `json:"userId"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// AssignmentConflictResource is the 409 body when a user is already bound
// to other endpoints.
type AssignmentConflictResource struct {
	UserID      string   `json:"userId"`
	EndpointIDs []string `json:"endpointIds"`
}

func NewAssignment(m *model.Assignment) (out *AssignmentResource) {
	out = &AssignmentResource{
		ID:         m.ID,
		Namespace:  m.Namespace,
		EndpointID: m.EndpointID,
		UserID:     m.UserID,
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

func ValidateAssignment(r *AssignmentResource) (m *model.Assignment, err error) {
	if r.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}

	m = &model.Assignment{
		Namespace:  r.Namespace,
		EndpointID: r.EndpointID,
		UserID:     r.UserID,
	}

	return m, nil
}
