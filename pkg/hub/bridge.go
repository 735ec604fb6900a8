package hub

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type waiterKey struct {
	endpointID string
	replyType  string
}

type waiter struct {
	ch        chan interface{}
	createdAt time.Time
}

// Bridge correlates outbound commands with their typed replies. Exactly
// one waiter per (endpoint id, reply type) is honored: a second
// registration for the same key displaces the first, whose caller then
// runs into its timeout even if a reply eventually arrives. This
// single-slot behavior is deliberate and callers rely on the bounded
// deadline, not on displacement never happening.
type Bridge struct {
	sync.Mutex
	waiters map[waiterKey]*waiter
}

func NewBridge() *Bridge {
	return &Bridge{
		waiters: make(map[waiterKey]*waiter),
	}
}

// Await registers a waiter for the next inbound message of replyType from
// the endpoint. The returned channel receives the payload once, or
// nothing if the waiter is displaced or cancelled.
func (b *Bridge) Await(endpointID, replyType string) <-chan interface{} {
	key := waiterKey{endpointID: endpointID, replyType: replyType}
	w := &waiter{
		ch:        make(chan interface{}, 1),
		createdAt: time.Now(),
	}

	b.Lock()
	if _, ok := b.waiters[key]; ok {
		log.Warnf("bridge displaces existing waiter for endpoint '%s' reply type '%s'",
			endpointID, replyType)
	}
	b.waiters[key] = w
	b.Unlock()

	return w.ch
}

// Resolve matches an inbound message against the outstanding waiter for
// its key. The waiter is destroyed on match. Returns false if no waiter
// was registered.
func (b *Bridge) Resolve(endpointID, replyType string, payload interface{}) bool {
	key := waiterKey{endpointID: endpointID, replyType: replyType}

	b.Lock()
	w, ok := b.waiters[key]
	if ok {
		delete(b.waiters, key)
	}
	b.Unlock()

	if !ok {
		return false
	}

	w.ch <- payload
	return true
}

// Cancel removes the waiter owning ch, unless it was already displaced or
// resolved.
func (b *Bridge) Cancel(endpointID, replyType string, ch <-chan interface{}) {
	key := waiterKey{endpointID: endpointID, replyType: replyType}

	b.Lock()
	defer b.Unlock()
	if w, ok := b.waiters[key]; ok && w.ch == ch {
		delete(b.waiters, key)
	}
}

// Outstanding reports the number of registered waiters.
func (b *Bridge) Outstanding() int {
	b.Lock()
	defer b.Unlock()
	return len(b.waiters)
}
