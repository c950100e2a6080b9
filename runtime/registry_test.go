package runtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"teamboard/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSink struct{ name string }

func (s stubSink) Consume(ctx context.Context, eventType protocol.EventType, payload any) error {
	return nil
}

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.NewString()
	sink := stubSink{name: "a"}

	// Given no user is connected
	_, ok := registry.Lookup(identity)
	req.False(ok)

	// When the identity registers
	registry.Register(identity, uuid.New(), sink)

	// Then lookups resolve its sink
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Equal(sink, found)
	req.Len(registry.Roster(), 1)
	req.Len(registry.Sinks(), 1)
}

func TestRegistry_Later_Registration_Supersedes(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.NewString()
	oldConn := uuid.New()
	newConn := uuid.New()

	// Given an identity already registered from one connection
	registry.Register(identity, oldConn, stubSink{name: "old"})

	// When the same identity registers from a new connection
	registry.Register(identity, newConn, stubSink{name: "new"})

	// Then the new sink silently replaces the old one
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Equal(stubSink{name: "new"}, found)
	req.Len(registry.Roster(), 1)
}

func TestRegistry_Stale_Unregister_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.NewString()
	oldConn := uuid.New()
	newConn := uuid.New()

	registry.Register(identity, oldConn, stubSink{name: "old"})
	registry.Register(identity, newConn, stubSink{name: "new"})

	// When the superseded connection finally disconnects
	registry.Unregister(identity, oldConn)

	// Then the live session is untouched
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Equal(stubSink{name: "new"}, found)

	// And unregistering an already-removed connection stays a no-op
	registry.Unregister(identity, newConn)
	registry.Unregister(identity, newConn)
	_, ok = registry.Lookup(identity)
	req.False(ok)
}

func TestRegistry_Mutations_Coalesce_But_Signal(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("u1", uuid.New(), stubSink{})
	registry.Register("u2", uuid.New(), stubSink{})

	// The channel coalesces; at least one wake-up is pending
	select {
	case <-registry.Mutations():
	default:
		req.Fail("expected a pending mutation signal")
	}
}

func TestRegistry_Concurrent_Registrations_Serialize(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := fmt.Sprintf("user-%d", n)
			connID := uuid.New()
			registry.Register(identity, connID, stubSink{name: identity})
			if n%2 == 0 {
				registry.Unregister(identity, connID)
			}
		}(i)
	}
	wg.Wait()

	// Final state matches some serial execution: odd users stay, even left
	req.Len(registry.Roster(), users/2)
	for i := 0; i < users; i++ {
		_, ok := registry.Lookup(fmt.Sprintf("user-%d", i))
		req.Equal(i%2 == 1, ok)
	}
}
