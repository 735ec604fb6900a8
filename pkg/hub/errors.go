package hub

type hubError string

func (e hubError) Error() string {
	return string(e)
}

// ErrEndpointOffline is returned per target id: the endpoint is not in the
// registry or its connection is not open. A fan-out never fails as a
// whole because of it.
const ErrEndpointOffline = hubError("endpoint offline")

// ErrOutboxFull means the connection's write queue rejected the envelope.
const ErrOutboxFull = hubError("connection outbox full")

// ErrSessionConflict is returned for a remote desktop start request when
// the endpoint already has a pending or active session.
const ErrSessionConflict = hubError("remote session exists for endpoint")

const ErrSessionNotFound = hubError("remote session not found")
const ErrSessionNotActive = hubError("remote session not active")

// ErrInvalidInputEvent rejects relaying a command that is not a remote
// input event into a session.
const ErrInvalidInputEvent = hubError("not a remote input event")

// ErrRequestTimeout is returned by a correlated request that expired
// without a caller-supplied fallback payload.
const ErrRequestTimeout = hubError("request timed out")
