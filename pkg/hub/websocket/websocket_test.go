package websocket

import (
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T) (*Driver, net.Conn, chan struct{}) {
	t.Helper()

	server, client := net.Pipe()
	terminateCh := make(chan struct{})

	driver := NewDriver(server, terminateCh)
	driver.Start()

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return driver, client, terminateCh
}

func TestDriverDeliversInboundFrames(t *testing.T) {
	driver, client, _ := newTestDriver(t)

	require.NoError(t, wsutil.WriteClientMessage(client, ws.OpText, []byte(`{"type":"ping"}`)))

	select {
	case msg := <-driver.Inbox:
		assert.Equal(t, `{"type":"ping"}`, string(msg.Data))
	case <-time.After(time.Second):
		t.Fatal("inbound frame never reached the inbox")
	}
}

func TestDriverWritesOutboxMessages(t *testing.T) {
	driver, client, _ := newTestDriver(t)

	driver.Outbox <- NewOutboxMessage(FlagContinue, []byte(`{"type":"pong"}`))

	data, err := wsutil.ReadServerText(client)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"pong"}`, string(data))
}

func TestDriverCloseGracefullySendsCloseFrame(t *testing.T) {
	driver, client, terminateCh := newTestDriver(t)

	driver.Outbox <- NewOutboxMessage(FlagCloseGracefully, []byte(`{"type":"abort"}`))

	data, err := wsutil.ReadServerText(client)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"abort"}`, string(data))

	frame, err := ws.ReadFrame(client)
	require.NoError(t, err)
	assert.Equal(t, ws.OpClose, frame.Header.OpCode)

	select {
	case <-terminateCh:
	case <-time.After(time.Second):
		t.Fatal("driver did not terminate after graceful close")
	}
}

func TestDriverTerminatesOnPeerClose(t *testing.T) {
	_, client, terminateCh := newTestDriver(t)

	require.NoError(t, client.Close())

	select {
	case <-terminateCh:
	case <-time.After(time.Second):
		t.Fatal("driver did not report the closed connection")
	}
}

func TestDriverStopClosesTerminateChannel(t *testing.T) {
	driver, _, terminateCh := newTestDriver(t)

	driver.Stop()

	select {
	case <-terminateCh:
	case <-time.After(time.Second):
		t.Fatal("stop did not close the terminate channel")
	}
}
