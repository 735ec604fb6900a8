package storage

import (
	"fmt"
	"strings"
)

type storageError string

const ErrNotFound = storageError("not found")

func (e storageError) Error() string {
	return string(e)
}

// ConflictError is returned when an assignment would bind a user that is
// already bound elsewhere. It carries the conflicting endpoint ids so the
// caller can surface them instead of a generic failure.
type ConflictError struct {
	UserID      string
	EndpointIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("user '%s' already assigned to: %s", e.UserID,
		strings.Join(e.EndpointIDs, ", "))
}

func IsConflict(err error) bool {
	_, ok := err.(*ConflictError)
	return ok
}
