// Package message defines the payloads exchanged over the internal NATS
// bus between the operator API layer and the hub controller.
package message

import (
	"time"
)

type ReplyStatus int

const (
	ReplyStatusSuccess = iota
	ReplyStatusError
)

// TargetAll is the dispatch sentinel that fans a command out to every
// registered connection.
const TargetAll string = "all"

// DispatchRequest asks the controller to route a command to one endpoint,
// to all endpoints, or to a group (GroupID set, Target empty).
type DispatchRequest struct {
	Target  string                 `json:"target,omitempty"`
	GroupID int32                  `json:"group_id,omitempty"`
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// DispatchReply reports the per-target outcome. Results maps endpoint id
// to an empty string on success or the failure reason otherwise; a
// multi-target dispatch never collapses into a single boolean.
type DispatchReply struct {
	Status       ReplyStatus       `json:"status"`
	Results      map[string]string `json:"results,omitempty"`
	ErrorReason  string            `json:"error_reason,omitempty"`
	ErrorDetails interface{}       `json:"error_details,omitempty"`
}

// CorrelatedRequest asks the controller to send a command and wait for the
// endpoint's typed reply.
type CorrelatedRequest struct {
	Target    string                 `json:"target"`
	Command   string                 `json:"command"`
	ReplyType string                 `json:"reply_type"`
	Params    map[string]interface{} `json:"params,omitempty"`
	TimeoutMS int64                  `json:"timeout_ms,omitempty"`
	Fallback  map[string]interface{} `json:"fallback,omitempty"`
}

type CorrelatedReply struct {
	Status       ReplyStatus            `json:"status"`
	TimedOut     bool                   `json:"timed_out"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	ErrorReason  string                 `json:"error_reason,omitempty"`
	ErrorDetails interface{}            `json:"error_details,omitempty"`
}

// PresenceEvent announces an endpoint connecting or disconnecting. It is
// published on the presence subject and consumed by dashboard
// subscribers.
type PresenceEvent struct {
	EndpointID    string    `json:"endpoint_id"`
	Status        string    `json:"status"`
	Generation    uint64    `json:"generation"`
	LastMessageAt time.Time `json:"last_message_at"`
}

const (
	PresenceConnected    string = "CONNECTED"
	PresenceDisconnected string = "DISCONNECTED"
)

// EventMessage is the published form of a stored event.
type EventMessage struct {
	SourceType    string      `json:"source_type"`
	SourceID      string      `json:"source_id,omitempty"`
	PublicationID int32       `json:"publication_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Details       interface{} `json:"details"`
}

// FrameEvent is the published form of a remote desktop frame, consumed by
// the operator's realtime subscription for the session.
type FrameEvent struct {
	SessionID  string    `json:"session_id"`
	EndpointID string    `json:"endpoint_id"`
	Data       string    `json:"data"`
	Timestamp  time.Time `json:"timestamp"`
}
