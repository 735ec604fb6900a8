package postgres

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

func newAssignmentStore(db *sqlx.DB) *assignmentStore {
	return &assignmentStore{
		db: db,
	}
}

type assignmentStore struct {
	db *sqlx.DB
}

type sqlDataAssignment struct {
	ID         int32     `db:"id"`
	Namespace  string    `db:"namespace"`
	EndpointID string    `db:"endpoint_id"`
	UserID     string    `db:"user_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (d *sqlDataAssignment) Model() *model.Assignment {
	return &model.Assignment{
		ID:         d.ID,
		Namespace:  d.Namespace,
		EndpointID: d.EndpointID,
		UserID:     d.UserID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (s *assignmentStore) GetForEndpoint(namespace, endpointID string) (*model.Assignment, error) {
	d := sqlDataAssignment{}
	query := "SELECT * FROM assignments WHERE namespace=$1 AND endpoint_id=$2"
	if err := s.db.Get(&d, query, namespace, endpointID); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find assignment")
	}

	return d.Model(), nil
}

func (s *assignmentStore) Set(namespace, endpointID, userID string) (*model.Assignment, error) {
	// Reject binding a user that is bound to another endpoint already. The
	// existing assignment stays untouched.
	bound := make([]string, 0)
	query := "SELECT endpoint_id FROM assignments WHERE namespace=$1 AND user_id=$2 AND endpoint_id<>$3"
	if err := s.db.Select(&bound, query, namespace, userID, endpointID); err != nil {
		return nil, errors.Wrap(err, "failed to check user assignment")
	}
	if len(bound) > 0 {
		return nil, &storage.ConflictError{UserID: userID, EndpointIDs: bound}
	}

	now := time.Now().Round(time.Second).UTC()
	d := sqlDataAssignment{}
	query = `INSERT INTO assignments (namespace, endpoint_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (namespace, endpoint_id) DO UPDATE SET user_id=$3, updated_at=$4
		RETURNING *`
	if err := s.db.Get(&d, query, namespace, endpointID, userID, now); err != nil {
		return nil, errors.Wrap(err, "failed to set assignment")
	}

	return d.Model(), nil
}

func (s *assignmentStore) Clear(namespace, endpointID string) error {
	res, err := s.db.Exec("DELETE FROM assignments WHERE namespace=$1 AND endpoint_id=$2",
		namespace, endpointID)
	if err != nil {
		return errors.Wrap(err, "failed to clear assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	return nil
}
