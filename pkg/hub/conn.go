package hub

// Conn is the live connection handle stored in the registry. The registry
// is the only place handles live; no other component keeps a reference
// that can outlive a register/unregister pair.
type Conn interface {
	// EndpointID returns the identifier the connection registered with.
	EndpointID() string

	// Send hands serialized data to the connection's write queue. It
	// never blocks; a full queue returns ErrOutboxFull.
	Send(data []byte) error

	// Open reports whether the connection is registered and writable.
	Open() bool

	// Shutdown schedules the underlying connection to be closed. Used by
	// the registry when a new connection replaces this one.
	Shutdown()
}
