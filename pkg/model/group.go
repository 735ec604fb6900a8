package model

import "time"

// PolicyType classifies an app policy entry.
type PolicyType string

const (
	PolicyAllow   PolicyType = "allow"
	PolicyBlock   PolicyType = "block"
	PolicyRequire PolicyType = "require"
)

// Group bundles endpoints that share app policies and restrictions.
// Membership is many-to-many, an endpoint may inherit from several groups.
type Group struct {
	ID        int32
	Namespace string
	Name      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppPolicy is a single allow/block/require entry for a package. It is
// attached either to a group (GroupID set) or to an individual endpoint
// (EndpointID set).
type AppPolicy struct {
	ID          int32
	Namespace   string
	GroupID     int32
	EndpointID  string
	PackageName string
	Type        PolicyType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Restrictions are device feature switches. True means disabled.
type Restrictions struct {
	WifiDisabled      bool `json:"wifi_disabled"`
	CameraDisabled    bool `json:"camera_disabled"`
	BluetoothDisabled bool `json:"bluetooth_disabled"`
	USBDisabled       bool `json:"usb_disabled"`
	LocationDisabled  bool `json:"location_disabled"`
}

// Merge combines two restriction sets. A feature disabled by any source
// stays disabled.
func (r Restrictions) Merge(other Restrictions) Restrictions {
	return Restrictions{
		WifiDisabled:      r.WifiDisabled || other.WifiDisabled,
		CameraDisabled:    r.CameraDisabled || other.CameraDisabled,
		BluetoothDisabled: r.BluetoothDisabled || other.BluetoothDisabled,
		USBDisabled:       r.USBDisabled || other.USBDisabled,
		LocationDisabled:  r.LocationDisabled || other.LocationDisabled,
	}
}
