package proto

import (
	"encoding/json"
	"time"
)

// NewEnvelope creates an outbound command envelope with the dispatch
// timestamp set.
func NewEnvelope(cmdType CommandType, params map[string]interface{}) Envelope {
	return Envelope{
		Type:      cmdType,
		Params:    params,
		Timestamp: time.Now().Unix(),
	}
}

func (m Envelope) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

type welcomeDetails struct {
	Type           CommandType            `json:"type"`
	SessionTimeout int                    `json:"session_timeout"`
	PingInterval   int                    `json:"ping_interval"`
	ReconnectDelay int                    `json:"reconnect_delay"`
	Policy         interface{}            `json:"policy,omitempty"`
	Params         map[string]interface{} `json:"params,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

// MarshalNewWelcomeMessage builds the registration reply. It carries the
// session parameters, the fixed agent reconnect delay and the endpoint's
// resolved policy.
func MarshalNewWelcomeMessage(sessionTimeout, pingInterval, reconnectDelay int, policy interface{}) ([]byte, error) {
	return json.Marshal(welcomeDetails{
		Type:           CommandWelcome,
		SessionTimeout: sessionTimeout,
		PingInterval:   pingInterval,
		ReconnectDelay: reconnectDelay,
		Policy:         policy,
		Timestamp:      time.Now().Unix(),
	})
}

type abortDetails struct {
	Type      CommandType `json:"type"`
	Reason    string      `json:"reason"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func MarshalNewAbortMessage(reason ErrorReason, details interface{}) ([]byte, error) {
	return json.Marshal(abortDetails{
		Type:      CommandAbort,
		Reason:    reason.String(),
		Details:   details,
		Timestamp: time.Now().Unix(),
	})
}

func MarshalNewPongMessage() ([]byte, error) {
	return NewEnvelope(CommandPong, nil).Marshal()
}
