package proto

import "github.com/fleetware/hub/pkg/model"

// MessageType identifies an inbound agent message. The wire format is a
// JSON object with a "type" discriminator.
type MessageType string

const (
	MessageTypeInvalid          MessageType = ""
	MessageTypeHello            MessageType = "hello"
	MessageTypePing             MessageType = "ping"
	MessageTypeDeviceStatus     MessageType = "device_status"
	MessageTypeComputerStatus   MessageType = "computer_status"
	MessageTypeLocationUpdate   MessageType = "location_update"
	MessageTypeSupportMessage   MessageType = "support_message"
	MessageTypeRemoteAccessInfo MessageType = "remote_access_info_response"
	MessageTypeRemoteDesktopAck MessageType = "remote_desktop_ack"
	MessageTypeRemoteFrame      MessageType = "remote_frame"
)

// HelloMessage opens a control channel. The endpoint identifies itself by
// its stable identifier; the kind decides which command set it accepts.
type HelloMessage struct {
	EndpointID string     `json:"endpoint_id"`
	Kind       model.Kind `json:"kind"`
	Timestamp  int64      `json:"timestamp"`
}

type PingMessage struct {
	Timestamp int64 `json:"timestamp"`
}

// StatusMessage carries full or partial telemetry. device_status and
// computer_status share the shape; absent fields stay nil and never
// overwrite known values.
type StatusMessage struct {
	Data      model.Telemetry `json:"data"`
	Model     string          `json:"model,omitempty"`
	OSVersion string          `json:"os_version,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type LocationMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

type SupportMessage struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ReplyMessage is an inbound message whose type is matched against an
// outstanding correlated waiter, e.g. remote_access_info_response.
type ReplyMessage struct {
	Type      MessageType            `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// AckMessage confirms a remote desktop session start.
type AckMessage struct {
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
}

// FrameMessage carries remote desktop frame data from the endpoint. The
// payload is opaque to the hub and relayed verbatim.
type FrameMessage struct {
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// CommandType identifies an outbound hub-to-agent command.
type CommandType string

const (
	CommandWelcome CommandType = "welcome"
	CommandAbort   CommandType = "abort"
	CommandPong    CommandType = "pong"

	CommandLockDevice    CommandType = "lock_device"
	CommandUnlockDevice  CommandType = "unlock_device"
	CommandReboot        CommandType = "reboot"
	CommandShutdown      CommandType = "shutdown"
	CommandWipeDevice    CommandType = "wipe_device"
	CommandSetRestriction CommandType = "set_restriction"
	CommandInstallApp    CommandType = "install_app"
	CommandUninstallApp  CommandType = "uninstall_app"
	CommandRunScript     CommandType = "run_script"
	CommandPushAppUpdate CommandType = "push_app_update"
	CommandPushPolicy    CommandType = "push_policy"

	CommandRequestRemoteAccessInfo CommandType = "request_remote_access_info"
	CommandStartRemoteDesktop      CommandType = "start_remote_desktop"
	CommandStopRemoteDesktop       CommandType = "stop_remote_desktop"

	CommandRemoteMouseMove  CommandType = "remote_mouse_move"
	CommandRemoteMouseClick CommandType = "remote_mouse_click"
	CommandRemoteMouseDown  CommandType = "remote_mouse_down"
	CommandRemoteMouseUp    CommandType = "remote_mouse_up"
	CommandRemoteWheel      CommandType = "remote_wheel"
	CommandRemoteKeyPress   CommandType = "remote_key_press"
	CommandRemoteKeyDown    CommandType = "remote_key_down"
	CommandRemoteKeyUp      CommandType = "remote_key_up"
	CommandRemoteText       CommandType = "remote_text"
)

// Envelope is the outbound hub-to-agent message. Immutable once
// dispatched.
type Envelope struct {
	Type      CommandType            `json:"type"`
	Action    string                 `json:"action,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// InputEventTypes lists the remote input commands an operator may relay
// into an active remote desktop session.
var InputEventTypes = map[CommandType]bool{
	CommandRemoteMouseMove:  true,
	CommandRemoteMouseClick: true,
	CommandRemoteMouseDown:  true,
	CommandRemoteMouseUp:    true,
	CommandRemoteWheel:      true,
	CommandRemoteKeyPress:   true,
	CommandRemoteKeyDown:    true,
	CommandRemoteKeyUp:      true,
	CommandRemoteText:       true,
}
