package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

func newEndpointStore(db *sqlx.DB) *endpointStore {
	return &endpointStore{
		db: db,
	}
}

type endpointStore struct {
	db *sqlx.DB
}

type sqlDataEndpoint struct {
	ID             int32     `db:"id"`
	Namespace      string    `db:"namespace"`
	EndpointID     string    `db:"endpoint_id"`
	Kind           string    `db:"kind"`
	ModelName      string    `db:"model"`
	OSVersion      string    `db:"os_version"`
	StorageTotal   int64     `db:"storage_total"`
	MemoryTotal    int64     `db:"memory_total"`
	Compliant      bool      `db:"compliant"`
	Telemetry      string    `db:"telemetry"`
	SessionTimeout int       `db:"session_timeout"`
	PingInterval   int       `db:"ping_interval"`
	LastSeenAt     time.Time `db:"last_seen_at"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

var sqlParamsEndpoint = []string{
	"id",
	"namespace",
	"endpoint_id",
	"kind",
	"model",
	"os_version",
	"storage_total",
	"memory_total",
	"compliant",
	"telemetry",
	"session_timeout",
	"ping_interval",
	"last_seen_at",
	"created_at",
	"updated_at",
}

func (d *sqlDataEndpoint) Scan(m *model.Endpoint) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	telemetry, err := json.Marshal(m.Telemetry)
	if err != nil {
		return err
	}

	d.ID = m.ID
	d.Namespace = m.Namespace
	d.EndpointID = m.EndpointID
	d.Kind = string(m.Kind)
	d.ModelName = m.Model
	d.OSVersion = m.OSVersion
	d.StorageTotal = m.StorageTotal
	d.MemoryTotal = m.MemoryTotal
	d.Compliant = m.Compliant
	d.Telemetry = string(telemetry)
	d.SessionTimeout = m.SessionTimeout
	d.PingInterval = m.PingInterval
	d.LastSeenAt = m.LastSeenAt
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataEndpoint) Model() (*model.Endpoint, error) {
	m := &model.Endpoint{
		ID:             d.ID,
		Namespace:      d.Namespace,
		EndpointID:     d.EndpointID,
		Kind:           model.Kind(d.Kind),
		Model:          d.ModelName,
		OSVersion:      d.OSVersion,
		StorageTotal:   d.StorageTotal,
		MemoryTotal:    d.MemoryTotal,
		Compliant:      d.Compliant,
		SessionTimeout: d.SessionTimeout,
		PingInterval:   d.PingInterval,
		LastSeenAt:     d.LastSeenAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}

	if d.Telemetry != "" {
		if err := json.Unmarshal([]byte(d.Telemetry), &m.Telemetry); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (s *endpointStore) FetchAll(namespace string) (map[string]model.Endpoint, error) {
	rows := make([]sqlDataEndpoint, 0)
	models := make(map[string]model.Endpoint)

	query := "SELECT * FROM endpoints WHERE namespace=$1 ORDER BY id"
	if err := s.db.Select(&rows, query, namespace); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all endpoints")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to endpoint model")
		}

		models[d.EndpointID] = *m
	}

	return models, nil
}

func (s *endpointStore) FindByEndpointID(namespace, endpointID string) (*model.Endpoint, error) {
	d := sqlDataEndpoint{}
	query := "SELECT * FROM endpoints WHERE namespace=$1 AND endpoint_id=$2"
	if err := s.db.Get(&d, query, namespace, endpointID); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find endpoint")
	}

	return d.Model()
}

func (s *endpointStore) Create(m *model.Endpoint) error {
	// Set default values
	if m.SessionTimeout == 0 {
		m.SessionTimeout = 120
	}
	if m.PingInterval == 0 {
		m.PingInterval = 30
	}

	d := sqlDataEndpoint{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert endpoint model to SQL data")
	}

	// Remove the id column because it's of SQL type serial
	sqlParamsWithoutID := make([]string, 0)
	for _, s := range sqlParamsEndpoint {
		if s != "id" {
			sqlParamsWithoutID = append(sqlParamsWithoutID, s)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO endpoints (%s) VALUES (%s) RETURNING id",
		strings.Join(sqlParamsWithoutID, ", "),
		":"+strings.Join(sqlParamsWithoutID, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create endpoint")
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

func (s *endpointStore) Upsert(m *model.Endpoint) error {
	existing, err := s.FindByEndpointID(m.Namespace, m.EndpointID)
	if err == storage.ErrNotFound {
		return s.Create(m)
	} else if err != nil {
		return err
	}

	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	d := sqlDataEndpoint{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert endpoint model to SQL data")
	}

	query := `UPDATE endpoints SET kind=:kind, model=:model,
		os_version=:os_version, storage_total=:storage_total,
		memory_total=:memory_total, compliant=:compliant,
		telemetry=:telemetry, session_timeout=:session_timeout,
		ping_interval=:ping_interval, last_seen_at=:last_seen_at,
		updated_at=:updated_at WHERE id=:id`
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to upsert endpoint")
	}

	return nil
}

func (s *endpointStore) UpdateLastSeen(namespace, endpointID string) error {
	query := "UPDATE endpoints SET last_seen_at=$1, updated_at=$1 WHERE namespace=$2 AND endpoint_id=$3"
	res, err := s.db.Exec(query, time.Now().Round(time.Second).UTC(), namespace, endpointID)
	if err != nil {
		return errors.Wrap(err, "failed to update endpoint last seen")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *endpointStore) Delete(namespace, endpointID string) error {
	query := "DELETE FROM endpoints WHERE namespace=$1 AND endpoint_id=$2"
	_, err := s.db.Exec(query, namespace, endpointID)
	if err != nil {
		return errors.Wrap(err, "failed to delete endpoint")
	}

	return nil
}
