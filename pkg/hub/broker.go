package hub

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SessionState is the remote desktop session lifecycle. Closed is
// terminal.
type SessionState int

const (
	SessionPending SessionState = iota
	SessionActive
	SessionClosed
)

func (state SessionState) String() string {
	names := []string{"PENDING", "ACTIVE", "CLOSED"}

	if state < SessionPending || state > SessionClosed {
		return "UNKNOWN"
	}

	return names[state]
}

// RemoteSession is a time-bounded interactive control channel between one
// operator and one endpoint.
type RemoteSession struct {
	ID             string
	EndpointID     string
	OperatorConnID string
	State          SessionState
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// FramePublisher fans endpoint frame data out to the operator's realtime
// subscription for the session.
type FramePublisher interface {
	PublishFrame(session RemoteSession, data string) error
}

// Broker creates, tracks and tears down remote desktop sessions, and
// enforces at most one pending/active session per endpoint so two
// operators can never interleave their input streams.
type Broker struct {
	sync.Mutex
	sessions   map[string]*RemoteSession
	byEndpoint map[string]string
	frames     FramePublisher
}

func NewBroker(frames FramePublisher) *Broker {
	return &Broker{
		sessions:   make(map[string]*RemoteSession),
		byEndpoint: make(map[string]string),
		frames:     frames,
	}
}

// Start mints a session in pending state. It fails fast with
// ErrSessionConflict if the endpoint already has a session that is not
// closed; the existing session stays untouched.
func (b *Broker) Start(endpointID, operatorConnID string) (RemoteSession, error) {
	b.Lock()
	defer b.Unlock()

	if existingID, ok := b.byEndpoint[endpointID]; ok {
		if existing := b.sessions[existingID]; existing != nil && existing.State != SessionClosed {
			return RemoteSession{}, ErrSessionConflict
		}
	}

	now := time.Now().Round(time.Second).UTC()
	sess := &RemoteSession{
		ID:             newSessionID(endpointID, now),
		EndpointID:     endpointID,
		OperatorConnID: operatorConnID,
		State:          SessionPending,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	b.sessions[sess.ID] = sess
	b.byEndpoint[endpointID] = sess.ID

	log.Infof("broker created remote session '%s' for endpoint '%s'", sess.ID, endpointID)

	return *sess, nil
}

// Ack records the endpoint's acknowledgement and moves the session from
// pending to active.
func (b *Broker) Ack(sessionID string) error {
	b.Lock()
	defer b.Unlock()

	sess, ok := b.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.State == SessionClosed {
		return ErrSessionNotActive
	}

	sess.State = SessionActive
	sess.LastActivityAt = time.Now().Round(time.Second).UTC()

	return nil
}

// HandleFrame relays frame data from the endpoint to the operator side.
// The endpoint's first frame also activates a still-pending session.
func (b *Broker) HandleFrame(endpointID, sessionID, data string) error {
	b.Lock()
	sess, ok := b.sessions[sessionID]
	if !ok || sess.EndpointID != endpointID {
		b.Unlock()
		return ErrSessionNotFound
	}
	if sess.State == SessionClosed {
		b.Unlock()
		return ErrSessionNotActive
	}

	sess.State = SessionActive
	sess.LastActivityAt = time.Now().Round(time.Second).UTC()
	snapshot := *sess
	b.Unlock()

	return b.frames.PublishFrame(snapshot, data)
}

// Touch bumps the session's activity clock for relayed input events and
// reports whether the session can carry them.
func (b *Broker) Touch(sessionID string) (RemoteSession, error) {
	b.Lock()
	defer b.Unlock()

	sess, ok := b.sessions[sessionID]
	if !ok {
		return RemoteSession{}, ErrSessionNotFound
	}
	if sess.State != SessionActive {
		return RemoteSession{}, ErrSessionNotActive
	}

	sess.LastActivityAt = time.Now().Round(time.Second).UTC()

	return *sess, nil
}

// Stop closes the session. Closed is terminal; stopping twice is a
// no-op for the second caller.
func (b *Broker) Stop(sessionID string) (RemoteSession, error) {
	b.Lock()
	defer b.Unlock()

	sess, ok := b.sessions[sessionID]
	if !ok {
		return RemoteSession{}, ErrSessionNotFound
	}

	b.closeLocked(sess)

	return *sess, nil
}

// Get returns a snapshot of the session.
func (b *Broker) Get(sessionID string) (RemoteSession, bool) {
	b.Lock()
	defer b.Unlock()

	sess, ok := b.sessions[sessionID]
	if !ok {
		return RemoteSession{}, false
	}

	return *sess, true
}

// EndpointDisconnected closes the endpoint's session, if any. Either
// side's connection drop ends the session.
func (b *Broker) EndpointDisconnected(endpointID string) (RemoteSession, bool) {
	b.Lock()
	defer b.Unlock()

	sessID, ok := b.byEndpoint[endpointID]
	if !ok {
		return RemoteSession{}, false
	}

	sess := b.sessions[sessID]
	if sess == nil || sess.State == SessionClosed {
		return RemoteSession{}, false
	}

	b.closeLocked(sess)

	return *sess, true
}

// OperatorDisconnected closes every session owned by the operator
// connection.
func (b *Broker) OperatorDisconnected(operatorConnID string) []RemoteSession {
	b.Lock()
	defer b.Unlock()

	closed := make([]RemoteSession, 0)
	for _, sess := range b.sessions {
		if sess.OperatorConnID == operatorConnID && sess.State != SessionClosed {
			b.closeLocked(sess)
			closed = append(closed, *sess)
		}
	}

	return closed
}

// CloseIdle force-closes sessions without frames or input events for the
// given duration. Called periodically by the controller's sweep loop.
func (b *Broker) CloseIdle(idleTimeout time.Duration) []RemoteSession {
	deadline := time.Now().Add(-idleTimeout)

	b.Lock()
	defer b.Unlock()

	closed := make([]RemoteSession, 0)
	for _, sess := range b.sessions {
		if sess.State != SessionClosed && sess.LastActivityAt.Before(deadline) {
			log.Warnf("broker closes idle remote session '%s'", sess.ID)
			b.closeLocked(sess)
			closed = append(closed, *sess)
		}
	}

	return closed
}

func (b *Broker) closeLocked(sess *RemoteSession) {
	if sess.State == SessionClosed {
		return
	}

	sess.State = SessionClosed
	if b.byEndpoint[sess.EndpointID] == sess.ID {
		delete(b.byEndpoint, sess.EndpointID)
	}

	log.Infof("broker closed remote session '%s'", sess.ID)
}

// newSessionID builds a globally unique session id from the endpoint id,
// the creation time and a random suffix.
func newSessionID(endpointID string, createdAt time.Time) string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", endpointID, createdAt.Unix(), suffix)
}
