// Package runtime hosts the realtime core: the connection registry, the
// presence broadcaster and the relays. It routes events without containing
// persistence or transport logic.
package runtime

import (
	"sync"

	"teamboard/contract"
	"teamboard/domain"

	"github.com/google/uuid"
)

type session struct {
	connID uuid.UUID
	sink   contract.EventSink
}

// Registry is the process-wide identity -> live session map. It is the only
// mutable shared state of the core; constructor-injected, never a package
// global. Every mutation wakes the presence broadcaster through a coalescing
// notification channel.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session
	mutated  chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]session),
		mutated:  make(chan struct{}, 1),
	}
}

// Mutations signals after every register/unregister. The channel coalesces:
// consumers recompute a full snapshot on wake, so collapsed signals lose
// nothing.
func (r *Registry) Mutations() <-chan struct{} {
	return r.mutated
}

// Register binds identity to a session. A later registration for the same
// identity silently supersedes the earlier mapping; the superseded
// connection is not closed here, it disappears on its own disconnect.
func (r *Registry) Register(identity string, connID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	r.sessions[identity] = session{connID: connID, sink: sink}
	r.mu.Unlock()
	r.notify()
}

// Lookup resolves the live sink for an identity. Safe to call concurrently
// with Register/Unregister.
func (r *Registry) Lookup(identity string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identity]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

// Unregister removes the mapping owned by the given connection. Idempotent:
// if the identity is gone, or was superseded by a newer connection, this is
// a no-op so a stale disconnect never evicts the live session.
func (r *Registry) Unregister(identity string, connID uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	if !ok || s.connID != connID {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, identity)
	r.mu.Unlock()
	r.notify()
}

// Roster reports every currently registered identity as online. Departed
// identities are remembered by the presence broadcaster, not here.
func (r *Registry) Roster() domain.Roster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roster := make(domain.Roster, 0, len(r.sessions))
	for identity := range r.sessions {
		roster = append(roster, domain.PresenceEntry{Identity: identity, Online: true})
	}
	return roster
}

// Sinks snapshots every live sink, for full-roster broadcasts.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, s := range r.sessions {
		sinks = append(sinks, s.sink)
	}
	return sinks
}

func (r *Registry) notify() {
	select {
	case r.mutated <- struct{}{}:
	default:
	}
}
