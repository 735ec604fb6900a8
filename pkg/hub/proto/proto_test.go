package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetware/hub/pkg/model"
)

func TestUnmarshalHelloMessage(t *testing.T) {
	data := []byte(`{"type":"hello","endpoint_id":"dev-1","kind":"mobile","timestamp":1700000000}`)

	msgType, msg, err := UnmarshalMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessageTypeHello, msgType)

	hello, ok := msg.(HelloMessage)
	require.True(t, ok)
	assert.Equal(t, "dev-1", hello.EndpointID)
	assert.Equal(t, model.KindMobile, hello.Kind)
}

func TestUnmarshalHelloWithoutEndpointID(t *testing.T) {
	_, _, err := UnmarshalMessage([]byte(`{"type":"hello","kind":"mobile"}`))
	require.Error(t, err)
}

func TestUnmarshalStatusMessagePartialTelemetry(t *testing.T) {
	data := []byte(`{"type":"device_status","data":{"battery":77},"timestamp":1700000000}`)

	msgType, msg, err := UnmarshalMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessageTypeDeviceStatus, msgType)

	status, ok := msg.(StatusMessage)
	require.True(t, ok)
	require.NotNil(t, status.Data.Battery)
	assert.Equal(t, 77, *status.Data.Battery)
	// Absent fields stay nil so they never overwrite known values.
	assert.Nil(t, status.Data.Charging)
	assert.Nil(t, status.Data.NetworkType)
}

func TestUnmarshalComputerStatusSharesShape(t *testing.T) {
	data := []byte(`{"type":"computer_status","data":{"ip_address":"10.1.2.3"},"model":"OptiPlex","os_version":"22.04"}`)

	msgType, msg, err := UnmarshalMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessageTypeComputerStatus, msgType)

	status := msg.(StatusMessage)
	assert.Equal(t, "OptiPlex", status.Model)
	assert.Equal(t, "22.04", status.OSVersion)
	require.NotNil(t, status.Data.IPAddress)
	assert.Equal(t, "10.1.2.3", *status.Data.IPAddress)
}

func TestUnmarshalReplyMessage(t *testing.T) {
	data := []byte(`{"type":"remote_access_info_response","data":{"address":"10.0.0.5","port":5900}}`)

	msgType, msg, err := UnmarshalMessage(data)
	require.NoError(t, err)
	require.Equal(t, MessageTypeRemoteAccessInfo, msgType)

	reply, ok := msg.(ReplyMessage)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", reply.Data["address"])
}

func TestUnmarshalAckAndFrameRequireSessionID(t *testing.T) {
	_, _, err := UnmarshalMessage([]byte(`{"type":"remote_desktop_ack"}`))
	require.Error(t, err)

	_, _, err = UnmarshalMessage([]byte(`{"type":"remote_frame","data":"Zg=="}`))
	require.Error(t, err)

	msgType, msg, err := UnmarshalMessage([]byte(`{"type":"remote_frame","session_id":"dev-1-1-abc","data":"Zg=="}`))
	require.NoError(t, err)
	require.Equal(t, MessageTypeRemoteFrame, msgType)
	assert.Equal(t, "dev-1-1-abc", msg.(FrameMessage).SessionID)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, _, err := UnmarshalMessage([]byte(`this is not json`))
	require.Error(t, err)

	_, _, err = UnmarshalMessage([]byte(`{"type":"no_such_type"}`))
	require.Error(t, err)
}

func TestEnvelopeMarshal(t *testing.T) {
	env := NewEnvelope(CommandLockDevice, map[string]interface{}{"reason": "lost"})
	data, err := env.Marshal()
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "lock_device", out["type"])
	assert.NotZero(t, out["timestamp"])

	params, ok := out["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "lost", params["reason"])
}

func TestMarshalWelcomeMessage(t *testing.T) {
	data, err := MarshalNewWelcomeMessage(120, 30, 15, nil)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "welcome", out["type"])
	assert.Equal(t, float64(120), out["session_timeout"])
	assert.Equal(t, float64(30), out["ping_interval"])
	// The agent applies a fixed delay before reconnecting; the value is
	// part of the handshake contract.
	assert.Equal(t, float64(15), out["reconnect_delay"])
}

func TestMarshalAbortMessage(t *testing.T) {
	data, err := MarshalNewAbortMessage(ErrReasonProtocolViolation, "endpoint kind must be mobile or desktop")
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "abort", out["type"])
	assert.Equal(t, "ERR_PROTOCOL_VIOLATION", out["reason"])
}
