package model

import "time"

// Assignment binds an endpoint to a user. A user is bound to at most one
// endpoint at a time; the store rejects a second binding instead of
// silently transferring it.
type Assignment struct {
	ID         int32
	Namespace  string
	EndpointID string
	UserID     string

	CreatedAt time.Time
	UpdatedAt time.Time
}
