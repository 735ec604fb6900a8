package proto

import (
	"encoding/json"
	"fmt"
)

type typeProbe struct {
	Type MessageType `json:"type"`
}

// UnmarshalMessage decodes an inbound agent frame. It returns the message
// type and the typed message struct for further processing.
func UnmarshalMessage(data []byte) (MessageType, interface{}, error) {
	probe := typeProbe{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return MessageTypeInvalid, nil, fmt.Errorf("hub: invalid message data: %s", err.Error())
	}

	switch probe.Type {
	case MessageTypeHello:
		return unmarshalTyped(data, probe.Type, &HelloMessage{})
	case MessageTypePing:
		return unmarshalTyped(data, probe.Type, &PingMessage{})
	case MessageTypeDeviceStatus, MessageTypeComputerStatus:
		return unmarshalTyped(data, probe.Type, &StatusMessage{})
	case MessageTypeLocationUpdate:
		return unmarshalTyped(data, probe.Type, &LocationMessage{})
	case MessageTypeSupportMessage:
		return unmarshalTyped(data, probe.Type, &SupportMessage{})
	case MessageTypeRemoteDesktopAck:
		return unmarshalTyped(data, probe.Type, &AckMessage{})
	case MessageTypeRemoteFrame:
		return unmarshalTyped(data, probe.Type, &FrameMessage{})
	case MessageTypeRemoteAccessInfo:
		msg := ReplyMessage{}
		if err := json.Unmarshal(data, &msg); err != nil {
			return MessageTypeInvalid, nil, err
		}
		msg.Type = probe.Type
		return probe.Type, msg, nil
	}

	return MessageTypeInvalid, nil, fmt.Errorf("hub: unknown message type '%s'", probe.Type)
}

func unmarshalTyped(data []byte, msgType MessageType, v interface{}) (MessageType, interface{}, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return MessageTypeInvalid, nil, fmt.Errorf("hub: invalid %s message: %s", msgType, err.Error())
	}

	switch m := v.(type) {
	case *HelloMessage:
		if m.EndpointID == "" {
			return MessageTypeInvalid, nil, fmt.Errorf("hub: hello message without endpoint id")
		}
		return msgType, *m, nil
	case *PingMessage:
		return msgType, *m, nil
	case *StatusMessage:
		return msgType, *m, nil
	case *LocationMessage:
		return msgType, *m, nil
	case *SupportMessage:
		return msgType, *m, nil
	case *AckMessage:
		if m.SessionID == "" {
			return MessageTypeInvalid, nil, fmt.Errorf("hub: remote desktop ack without session id")
		}
		return msgType, *m, nil
	case *FrameMessage:
		if m.SessionID == "" {
			return MessageTypeInvalid, nil, fmt.Errorf("hub: remote frame without session id")
		}
		return msgType, *m, nil
	}

	// This return should never be reached
	return MessageTypeInvalid, nil, fmt.Errorf("hub: unexpected message struct")
}
