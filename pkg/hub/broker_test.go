package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedFrame struct {
	session RemoteSession
	data    string
}

type fakeFramePublisher struct {
	mu     sync.Mutex
	frames []capturedFrame
}

func (p *fakeFramePublisher) PublishFrame(sess RemoteSession, data string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, capturedFrame{session: sess, data: data})
	return nil
}

func TestBrokerStartAndAck(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)
	assert.Equal(t, SessionPending, sess.State)
	assert.Equal(t, "dev-1", sess.EndpointID)
	assert.NotEmpty(t, sess.ID)

	require.NoError(t, b.Ack(sess.ID))

	got, ok := b.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, SessionActive, got.State)
}

func TestBrokerSecondSessionConflicts(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)

	_, err = b.Start("dev-1", "op-2")
	require.Equal(t, ErrSessionConflict, err)

	// The original session is untouched by the rejected start.
	got, ok := b.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, SessionPending, got.State)

	// A different endpoint is unaffected.
	_, err = b.Start("dev-2", "op-2")
	assert.NoError(t, err)
}

func TestBrokerStopAllowsNewSession(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)

	stopped, err := b.Stop(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, stopped.State)

	// Closed is terminal but not blocking.
	_, err = b.Start("dev-1", "op-1")
	assert.NoError(t, err)
}

func TestBrokerFirstFrameActivatesSession(t *testing.T) {
	pub := &fakeFramePublisher{}
	b := NewBroker(pub)

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)

	require.NoError(t, b.HandleFrame("dev-1", sess.ID, "ZnJhbWUtZGF0YQ=="))

	got, ok := b.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, SessionActive, got.State)

	require.Len(t, pub.frames, 1)
	assert.Equal(t, sess.ID, pub.frames[0].session.ID)
	assert.Equal(t, "ZnJhbWUtZGF0YQ==", pub.frames[0].data)
}

func TestBrokerFrameForWrongEndpointRejected(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)

	err = b.HandleFrame("dev-2", sess.ID, "data")
	assert.Equal(t, ErrSessionNotFound, err)
}

func TestBrokerTouchRequiresActiveSession(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)

	_, err = b.Touch(sess.ID)
	assert.Equal(t, ErrSessionNotActive, err)

	require.NoError(t, b.Ack(sess.ID))
	_, err = b.Touch(sess.ID)
	assert.NoError(t, err)

	_, err = b.Touch("no-such-session")
	assert.Equal(t, ErrSessionNotFound, err)
}

func TestBrokerEndpointDisconnectClosesSession(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)
	require.NoError(t, b.Ack(sess.ID))

	closed, ok := b.EndpointDisconnected("dev-1")
	require.True(t, ok)
	assert.Equal(t, sess.ID, closed.ID)
	assert.Equal(t, SessionClosed, closed.State)

	_, ok = b.EndpointDisconnected("dev-1")
	assert.False(t, ok)
}

func TestBrokerOperatorDisconnectClosesOwnedSessions(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	s1, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)
	_, err = b.Start("dev-2", "op-2")
	require.NoError(t, err)

	closed := b.OperatorDisconnected("op-1")
	require.Len(t, closed, 1)
	assert.Equal(t, s1.ID, closed[0].ID)

	// op-2's session survives.
	_, err = b.Start("dev-2", "op-2")
	assert.Equal(t, ErrSessionConflict, err)
}

func TestBrokerCloseIdle(t *testing.T) {
	b := NewBroker(&fakeFramePublisher{})

	sess, err := b.Start("dev-1", "op-1")
	require.NoError(t, err)
	require.NoError(t, b.Ack(sess.ID))

	// Nothing is idle against a generous timeout.
	assert.Len(t, b.CloseIdle(time.Hour), 0)

	// A deadline in the future makes every session stale.
	closed := b.CloseIdle(-2 * time.Second)
	require.Len(t, closed, 1)
	assert.Equal(t, sess.ID, closed[0].ID)

	got, ok := b.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, SessionClosed, got.State)
}
