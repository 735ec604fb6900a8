package postgres

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fleetware/hub/pkg/model"
)

func newPolicyStore(db *sqlx.DB) *policyStore {
	return &policyStore{
		db: db,
	}
}

type policyStore struct {
	db *sqlx.DB
}

type sqlDataAppPolicy struct {
	ID          int32     `db:"id"`
	Namespace   string    `db:"namespace"`
	GroupID     int32     `db:"group_id"`
	EndpointID  string    `db:"endpoint_id"`
	PackageName string    `db:"package_name"`
	Type        string    `db:"policy_type"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type sqlDataRestrictions struct {
	WifiDisabled      bool `db:"wifi_disabled"`
	CameraDisabled    bool `db:"camera_disabled"`
	BluetoothDisabled bool `db:"bluetooth_disabled"`
	USBDisabled       bool `db:"usb_disabled"`
	LocationDisabled  bool `db:"location_disabled"`
}

func (d *sqlDataAppPolicy) Model() *model.AppPolicy {
	return &model.AppPolicy{
		ID:          d.ID,
		Namespace:   d.Namespace,
		GroupID:     d.GroupID,
		EndpointID:  d.EndpointID,
		PackageName: d.PackageName,
		Type:        model.PolicyType(d.Type),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (d *sqlDataRestrictions) Model() model.Restrictions {
	return model.Restrictions{
		WifiDisabled:      d.WifiDisabled,
		CameraDisabled:    d.CameraDisabled,
		BluetoothDisabled: d.BluetoothDisabled,
		USBDisabled:       d.USBDisabled,
		LocationDisabled:  d.LocationDisabled,
	}
}

func (s *policyStore) ListForGroup(groupID int32) ([]model.AppPolicy, error) {
	rows := make([]sqlDataAppPolicy, 0)

	query := "SELECT * FROM app_policies WHERE group_id=$1 AND endpoint_id='' ORDER BY id"
	if err := s.db.Select(&rows, query, groupID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch group policies")
	}

	entries := make([]model.AppPolicy, 0, len(rows))
	for _, d := range rows {
		entries = append(entries, *d.Model())
	}

	return entries, nil
}

func (s *policyStore) ListForEndpoint(namespace, endpointID string) ([]model.AppPolicy, error) {
	rows := make([]sqlDataAppPolicy, 0)

	query := "SELECT * FROM app_policies WHERE namespace=$1 AND endpoint_id=$2 ORDER BY id"
	if err := s.db.Select(&rows, query, namespace, endpointID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch endpoint policies")
	}

	entries := make([]model.AppPolicy, 0, len(rows))
	for _, d := range rows {
		entries = append(entries, *d.Model())
	}

	return entries, nil
}

func (s *policyStore) Create(m *model.AppPolicy) error {
	now := time.Now().Round(time.Second).UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	query := `INSERT INTO app_policies
		(namespace, group_id, endpoint_id, package_name, policy_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	row := s.db.QueryRow(query, m.Namespace, m.GroupID, m.EndpointID,
		m.PackageName, string(m.Type), m.CreatedAt, m.UpdatedAt)
	if err := row.Scan(&m.ID); err != nil {
		return errors.Wrap(err, "failed to create app policy")
	}

	return nil
}

func (s *policyStore) Delete(id int32) error {
	_, err := s.db.Exec("DELETE FROM app_policies WHERE id=$1", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete app policy")
	}

	return nil
}

func (s *policyStore) RestrictionsForGroup(groupID int32) (model.Restrictions, error) {
	d := sqlDataRestrictions{}
	query := `SELECT wifi_disabled, camera_disabled, bluetooth_disabled,
		usb_disabled, location_disabled FROM group_restrictions WHERE group_id=$1`
	if err := s.db.Get(&d, query, groupID); err != nil {
		if err == sql.ErrNoRows {
			return model.Restrictions{}, nil
		}
		return model.Restrictions{}, errors.Wrap(err, "failed to fetch group restrictions")
	}

	return d.Model(), nil
}

func (s *policyStore) RestrictionsForEndpoint(namespace, endpointID string) (model.Restrictions, error) {
	d := sqlDataRestrictions{}
	query := `SELECT wifi_disabled, camera_disabled, bluetooth_disabled,
		usb_disabled, location_disabled FROM endpoint_restrictions
		WHERE namespace=$1 AND endpoint_id=$2`
	if err := s.db.Get(&d, query, namespace, endpointID); err != nil {
		if err == sql.ErrNoRows {
			return model.Restrictions{}, nil
		}
		return model.Restrictions{}, errors.Wrap(err, "failed to fetch endpoint restrictions")
	}

	return d.Model(), nil
}

func (s *policyStore) SetRestrictionsForGroup(groupID int32, r model.Restrictions) error {
	query := `INSERT INTO group_restrictions
		(group_id, wifi_disabled, camera_disabled, bluetooth_disabled, usb_disabled, location_disabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_id) DO UPDATE SET
		wifi_disabled=$2, camera_disabled=$3, bluetooth_disabled=$4,
		usb_disabled=$5, location_disabled=$6`
	_, err := s.db.Exec(query, groupID, r.WifiDisabled, r.CameraDisabled,
		r.BluetoothDisabled, r.USBDisabled, r.LocationDisabled)
	if err != nil {
		return errors.Wrap(err, "failed to set group restrictions")
	}

	return nil
}

func (s *policyStore) SetRestrictionsForEndpoint(namespace, endpointID string, r model.Restrictions) error {
	query := `INSERT INTO endpoint_restrictions
		(namespace, endpoint_id, wifi_disabled, camera_disabled, bluetooth_disabled, usb_disabled, location_disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (namespace, endpoint_id) DO UPDATE SET
		wifi_disabled=$3, camera_disabled=$4, bluetooth_disabled=$5,
		usb_disabled=$6, location_disabled=$7`
	_, err := s.db.Exec(query, namespace, endpointID, r.WifiDisabled,
		r.CameraDisabled, r.BluetoothDisabled, r.USBDisabled, r.LocationDisabled)
	if err != nil {
		return errors.Wrap(err, "failed to set endpoint restrictions")
	}

	return nil
}
