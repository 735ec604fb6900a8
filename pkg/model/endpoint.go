package model

import "time"

// Kind distinguishes the two classes of managed endpoints.
type Kind string

const (
	KindMobile  Kind = "mobile"
	KindDesktop Kind = "desktop"
)

// Endpoint is the persisted inventory record of a managed device or
// computer. It is created with defaults on the endpoint's first successful
// handshake and never deleted by the hub itself.
type Endpoint struct {
	ID         int32
	Namespace  string
	EndpointID string
	Kind       Kind

	// Baseline facts reported at enrollment or refreshed by full status
	// messages.
	Model        string
	OSVersion    string
	StorageTotal int64
	MemoryTotal  int64
	Compliant    bool

	// Last persisted telemetry snapshot, the fallback under the live
	// overlay.
	Telemetry Telemetry

	SessionTimeout int
	PingInterval   int

	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Telemetry holds live-reported fields. All fields are pointers so that a
// partial report can be distinguished from a report of the zero value; an
// absent field never shadows a present baseline value.
type Telemetry struct {
	Battery     *int     `json:"battery,omitempty"`
	Charging    *bool    `json:"charging,omitempty"`
	NetworkType *string  `json:"network_type,omitempty"`
	SSID        *string  `json:"ssid,omitempty"`
	IPAddress   *string  `json:"ip_address,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Apps        []string `json:"apps,omitempty"`
}

// Merge returns the telemetry overlay of live over base: every field
// present in live wins, absent fields fall through to base.
func (base Telemetry) Merge(live Telemetry) Telemetry {
	out := base
	if live.Battery != nil {
		out.Battery = live.Battery
	}
	if live.Charging != nil {
		out.Charging = live.Charging
	}
	if live.NetworkType != nil {
		out.NetworkType = live.NetworkType
	}
	if live.SSID != nil {
		out.SSID = live.SSID
	}
	if live.IPAddress != nil {
		out.IPAddress = live.IPAddress
	}
	if live.Latitude != nil {
		out.Latitude = live.Latitude
	}
	if live.Longitude != nil {
		out.Longitude = live.Longitude
	}
	if live.Apps != nil {
		out.Apps = live.Apps
	}
	return out
}
