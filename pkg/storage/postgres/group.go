package postgres

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

func newGroupStore(db *sqlx.DB) *groupStore {
	return &groupStore{
		db: db,
	}
}

type groupStore struct {
	db *sqlx.DB
}

type sqlDataGroup struct {
	ID        int32     `db:"id"`
	Namespace string    `db:"namespace"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (d *sqlDataGroup) Scan(m *model.Group) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.Namespace = m.Namespace
	d.Name = m.Name
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataGroup) Model() (*model.Group, error) {
	m := &model.Group{
		ID:        d.ID,
		Namespace: d.Namespace,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	return m, nil
}

func (s *groupStore) FetchAll(namespace string) (map[int32]model.Group, error) {
	rows := make([]sqlDataGroup, 0)
	models := make(map[int32]model.Group)

	query := "SELECT * FROM groups WHERE namespace=$1 ORDER BY id"
	if err := s.db.Select(&rows, query, namespace); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all groups")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to group model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *groupStore) FindByID(id int32) (*model.Group, error) {
	d := sqlDataGroup{}
	query := "SELECT * FROM groups WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find group")
	}

	return d.Model()
}

func (s *groupStore) Create(m *model.Group) error {
	d := sqlDataGroup{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert group model to SQL data")
	}

	query := `INSERT INTO groups (namespace, name, created_at, updated_at)
		VALUES (:namespace, :name, :created_at, :updated_at) RETURNING id`
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create group")
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

func (s *groupStore) Delete(id int32) error {
	if _, err := s.db.Exec("DELETE FROM group_members WHERE group_id=$1", id); err != nil {
		return errors.Wrap(err, "failed to delete group members")
	}

	_, err := s.db.Exec("DELETE FROM groups WHERE id=$1", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete group")
	}

	return nil
}

func (s *groupStore) AddMember(groupID int32, endpointID string) error {
	query := `INSERT INTO group_members (group_id, endpoint_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := s.db.Exec(query, groupID, endpointID); err != nil {
		return errors.Wrap(err, "failed to add group member")
	}

	return nil
}

func (s *groupStore) RemoveMember(groupID int32, endpointID string) error {
	query := "DELETE FROM group_members WHERE group_id=$1 AND endpoint_id=$2"
	res, err := s.db.Exec(query, groupID, endpointID)
	if err != nil {
		return errors.Wrap(err, "failed to remove group member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *groupStore) Members(groupID int32) ([]string, error) {
	ids := make([]string, 0)

	query := "SELECT endpoint_id FROM group_members WHERE group_id=$1 ORDER BY endpoint_id"
	if err := s.db.Select(&ids, query, groupID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch group members")
	}

	return ids, nil
}

func (s *groupStore) ListForEndpoint(namespace, endpointID string) ([]model.Group, error) {
	rows := make([]sqlDataGroup, 0)

	query := `SELECT g.* FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE g.namespace=$1 AND gm.endpoint_id=$2 ORDER BY g.id`
	if err := s.db.Select(&rows, query, namespace, endpointID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch groups for endpoint")
	}

	groups := make([]model.Group, 0, len(rows))
	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to group model")
		}
		groups = append(groups, *m)
	}

	return groups, nil
}
