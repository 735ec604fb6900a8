package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeResolveMatchesWaiter(t *testing.T) {
	b := NewBridge()

	ch := b.Await("dev-1", "remote_access_info_response")
	require.Equal(t, 1, b.Outstanding())

	payload := map[string]interface{}{"address": "10.0.0.5"}
	require.True(t, b.Resolve("dev-1", "remote_access_info_response", payload))

	select {
	case got := <-ch:
		assert.Equal(t, payload, got)
	case <-time.After(time.Second):
		t.Fatal("waiter never received the payload")
	}

	assert.Equal(t, 0, b.Outstanding())
}

func TestBridgeResolveWithoutWaiter(t *testing.T) {
	b := NewBridge()
	assert.False(t, b.Resolve("dev-1", "remote_access_info_response", nil))
}

func TestBridgeKeyIsEndpointAndReplyType(t *testing.T) {
	b := NewBridge()

	ch1 := b.Await("dev-1", "remote_access_info_response")
	ch2 := b.Await("dev-2", "remote_access_info_response")
	require.Equal(t, 2, b.Outstanding())

	require.True(t, b.Resolve("dev-2", "remote_access_info_response", "second"))

	select {
	case got := <-ch2:
		assert.Equal(t, "second", got)
	case <-time.After(time.Second):
		t.Fatal("waiter for dev-2 never resolved")
	}

	// dev-1's waiter is untouched.
	select {
	case <-ch1:
		t.Fatal("waiter for dev-1 must not resolve")
	default:
	}
}

func TestBridgeSecondAwaitDisplacesFirst(t *testing.T) {
	b := NewBridge()

	first := b.Await("dev-1", "remote_access_info_response")
	second := b.Await("dev-1", "remote_access_info_response")
	require.Equal(t, 1, b.Outstanding())

	require.True(t, b.Resolve("dev-1", "remote_access_info_response", "payload"))

	// The reply goes to the displacing waiter only; the first caller runs
	// into its timeout.
	select {
	case got := <-second:
		assert.Equal(t, "payload", got)
	case <-time.After(time.Second):
		t.Fatal("second waiter never resolved")
	}

	select {
	case <-first:
		t.Fatal("displaced waiter must not receive the payload")
	default:
	}
}

func TestBridgeCancelRemovesOwnWaiterOnly(t *testing.T) {
	b := NewBridge()

	first := b.Await("dev-1", "remote_access_info_response")
	second := b.Await("dev-1", "remote_access_info_response")

	// Cancelling the displaced waiter must not tear down its successor.
	b.Cancel("dev-1", "remote_access_info_response", first)
	assert.Equal(t, 1, b.Outstanding())

	b.Cancel("dev-1", "remote_access_info_response", second)
	assert.Equal(t, 0, b.Outstanding())
}
