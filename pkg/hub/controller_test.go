package hub

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetware/hub/pkg/hub/websocket"
	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage/memory"
)

// testAgent speaks the agent side of the control channel over an
// in-process pipe, the server side runs the real websocket driver.
type testAgent struct {
	conn        net.Conn
	terminateCh chan struct{}
	cc          *ControlChannel
}

func dialTestAgent(t *testing.T, ctrl *Controller) *testAgent {
	t.Helper()

	server, client := net.Pipe()
	terminateCh := make(chan struct{})

	driver := websocket.NewDriver(server, terminateCh)
	driver.Start()
	cc := ctrl.NewControlChannel(driver)

	go func() {
		<-terminateCh
		cc.Close()
	}()

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return &testAgent{conn: client, terminateCh: terminateCh, cc: cc}
}

func (a *testAgent) send(t *testing.T, payload map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, wsutil.WriteClientMessage(a.conn, ws.OpText, data))
}

func (a *testAgent) read(t *testing.T) map[string]interface{} {
	t.Helper()

	data, err := wsutil.ReadServerText(a.conn)
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func (a *testAgent) register(t *testing.T, endpointID string) map[string]interface{} {
	t.Helper()

	a.send(t, map[string]interface{}{
		"type":        "hello",
		"endpoint_id": endpointID,
		"kind":        "mobile",
		"timestamp":   time.Now().Unix(),
	})

	welcome := a.read(t)
	require.Equal(t, "welcome", welcome["type"])
	return welcome
}

func newTestController() *Controller {
	return NewController(nil, memory.NewStore(), nil)
}

func TestControllerRegistersEndpointAndMergesTelemetry(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)

	welcome := agent.register(t, "dev-9")
	assert.EqualValues(t, 120, welcome["session_timeout"])
	assert.EqualValues(t, 30, welcome["ping_interval"])
	assert.EqualValues(t, 15, welcome["reconnect_delay"])

	agent.send(t, map[string]interface{}{
		"type":      "device_status",
		"data":      map[string]interface{}{"battery": 77, "charging": true},
		"model":     "Pixel 9",
		"timestamp": time.Now().Unix(),
	})

	require.Eventually(t, func() bool {
		list, err := ctrl.ListLiveEndpoints()
		if err != nil || len(list) != 1 {
			return false
		}
		row := list[0]
		return row.EndpointID == "dev-9" && row.Connected &&
			row.Telemetry.Battery != nil && *row.Telemetry.Battery == 77
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		ep, err := ctrl.store.Endpoints().FindByEndpointID(DefaultNamespace, "dev-9")
		return err == nil && ep.Model == "Pixel 9"
	}, time.Second, 10*time.Millisecond)
}

func TestControllerRejectsUnknownEndpointKind(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)

	agent.send(t, map[string]interface{}{
		"type":        "hello",
		"endpoint_id": "dev-1",
		"kind":        "toaster",
		"timestamp":   time.Now().Unix(),
	})

	abort := agent.read(t)
	assert.Equal(t, "abort", abort["type"])
	assert.Equal(t, "ERR_PROTOCOL_VIOLATION", abort["reason"])

	frame, err := ws.ReadFrame(agent.conn)
	require.NoError(t, err)
	assert.Equal(t, ws.OpClose, frame.Header.OpCode)

	select {
	case <-agent.terminateCh:
	case <-time.After(time.Second):
		t.Fatal("connection was not torn down after rejected registration")
	}
}

func TestControllerDispatchReachesAgent(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)
	agent.register(t, "dev-5")

	results, err := ctrl.DispatchCommand("dev-5", 0, "lock_device", map[string]interface{}{
		"message": "locked by helpdesk",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results["dev-5"])

	cmd := agent.read(t)
	assert.Equal(t, "lock_device", cmd["type"])
	params, ok := cmd["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "locked by helpdesk", params["message"])
}

func TestControllerDispatchAfterDisconnectReportsOffline(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)
	agent.register(t, "dev-6")

	require.NoError(t, agent.conn.Close())

	require.Eventually(t, func() bool {
		results, err := ctrl.DispatchCommand("dev-6", 0, "lock_device", nil)
		if err != nil {
			return false
		}
		return results["dev-6"] == ErrEndpointOffline
	}, time.Second, 10*time.Millisecond)

	list, err := ctrl.ListLiveEndpoints()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Connected)
}

func TestControllerForgetEndpointClearsLiveTelemetry(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)
	agent.register(t, "dev-ghost")

	agent.send(t, map[string]interface{}{
		"type":      "device_status",
		"data":      map[string]interface{}{"battery": 13},
		"timestamp": time.Now().Unix(),
	})

	require.Eventually(t, func() bool {
		list, err := ctrl.ListLiveEndpoints()
		if err != nil || len(list) != 1 {
			return false
		}
		return list[0].Telemetry.Battery != nil && *list[0].Telemetry.Battery == 13
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, agent.conn.Close())
	require.Eventually(t, func() bool {
		list, err := ctrl.ListLiveEndpoints()
		return err == nil && len(list) == 1 && !list[0].Connected
	}, time.Second, 10*time.Millisecond)

	// Administrative deletion removes the inventory row and the live
	// record. A re-enrolled endpoint id must not inherit the old
	// connection's telemetry.
	require.NoError(t, ctrl.store.Endpoints().Delete(DefaultNamespace, "dev-ghost"))
	ctrl.ForgetEndpoint("dev-ghost")

	require.NoError(t, ctrl.store.Endpoints().Create(&model.Endpoint{
		Namespace:  DefaultNamespace,
		EndpointID: "dev-ghost",
		Kind:       model.KindMobile,
	}))

	list, err := ctrl.ListLiveEndpoints()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Telemetry.Battery)
}

func TestControllerRequestWithReplyRoundTrip(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)
	agent.register(t, "dev-7")

	go func() {
		cmd := agent.read(t)
		if cmd["type"] != "request_remote_access_info" {
			return
		}
		agent.send(t, map[string]interface{}{
			"type":      "remote_access_info_response",
			"data":      map[string]interface{}{"address": "10.0.0.8:5900"},
			"timestamp": time.Now().Unix(),
		})
	}()

	payload, timedOut, err := ctrl.RequestWithReply("dev-7",
		"request_remote_access_info", "remote_access_info_response",
		nil, 2*time.Second, nil)
	require.NoError(t, err)
	assert.False(t, timedOut)

	data, ok := payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10.0.0.8:5900", data["address"])
}

func TestControllerRequestWithReplyTimeout(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)
	agent.register(t, "dev-4")

	// The agent never answers, the caller gets its fallback back.
	fallback := map[string]interface{}{"address": "cached"}
	payload, timedOut, err := ctrl.RequestWithReply("dev-4",
		"request_remote_access_info", "remote_access_info_response",
		nil, 50*time.Millisecond, fallback)
	require.NoError(t, err)
	assert.True(t, timedOut)
	assert.Equal(t, fallback, payload)

	// Without a fallback the timeout is an error.
	_, timedOut, err = ctrl.RequestWithReply("dev-4",
		"request_remote_access_info", "remote_access_info_response",
		nil, 50*time.Millisecond, nil)
	assert.True(t, timedOut)
	assert.Equal(t, ErrRequestTimeout, err)
}

func TestControllerRequestWithReplyOfflineTarget(t *testing.T) {
	ctrl := newTestController()

	_, _, err := ctrl.RequestWithReply("dev-gone",
		"request_remote_access_info", "remote_access_info_response",
		nil, time.Second, nil)
	assert.Equal(t, ErrEndpointOffline, err)
}

func TestControlChannelTerminatesAfterRepeatedGarbage(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)

	// Drain server frames so the terminating write is not stuck on the
	// synchronous pipe.
	go func() {
		for {
			if _, err := wsutil.ReadServerText(agent.conn); err != nil {
				return
			}
		}
	}()

	for i := 0; i < maxProtocolViolations; i++ {
		require.NoError(t, wsutil.WriteClientMessage(agent.conn, ws.OpText, []byte("not json")))
	}

	select {
	case <-agent.terminateCh:
	case <-time.After(time.Second):
		t.Fatal("channel survived repeated protocol violations")
	}
}

func TestControlChannelValidFrameResetsViolations(t *testing.T) {
	ctrl := newTestController()
	agent := dialTestAgent(t, ctrl)

	for i := 0; i < maxProtocolViolations-1; i++ {
		require.NoError(t, wsutil.WriteClientMessage(agent.conn, ws.OpText, []byte("not json")))
	}
	agent.register(t, "dev-2")

	// One more bad frame starts a fresh count instead of tipping over.
	require.NoError(t, wsutil.WriteClientMessage(agent.conn, ws.OpText, []byte("still not json")))

	agent.send(t, map[string]interface{}{"type": "ping", "timestamp": time.Now().Unix()})
	pong := agent.read(t)
	assert.Equal(t, "pong", pong["type"])
}
