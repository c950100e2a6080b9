package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"teamboard/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	eventuallyTimeout = 2 * time.Second
	eventuallyTick    = 10 * time.Millisecond
)

type recordingSink struct {
	mu     sync.Mutex
	events []protocol.EventType
	last   map[protocol.EventType]any
}

func newRecordingSink() *recordingSink {
	return &recordingSink{last: make(map[protocol.EventType]any)}
}

func (s *recordingSink) Consume(_ context.Context, eventType protocol.EventType, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventType)
	s.last[eventType] = payload
	return nil
}

func (s *recordingSink) lastRoster() []protocol.PresenceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	update, ok := s.last[protocol.EventPresenceUpdate].(protocol.PresenceUpdate)
	if !ok {
		return nil
	}
	return update.Roster
}

func TestPresence_Broadcasts_Full_Roster_To_Everyone(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	presence := NewPresenceBroadcaster(slog.Default(), registry)
	sinkA := newRecordingSink()
	sinkB := newRecordingSink()

	// Given two registered users
	registry.Register("u1", uuid.New(), sinkA)
	registry.Register("u2", uuid.New(), sinkB)

	// When the roster is broadcast
	presence.Broadcast(context.Background())

	// Then every connection receives the same full snapshot
	expected := []protocol.PresenceEntry{
		{Identity: "u1", Online: true},
		{Identity: "u2", Online: true},
	}
	req.Equal(expected, sinkA.lastRoster())
	req.Equal(expected, sinkB.lastRoster())
}

func TestPresence_Reports_Departed_User_Offline(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	presence := NewPresenceBroadcaster(slog.Default(), registry)
	sinkA := newRecordingSink()
	sinkB := newRecordingSink()
	connB := uuid.New()

	registry.Register("u1", uuid.New(), sinkA)
	registry.Register("u2", connB, sinkB)
	presence.Broadcast(context.Background())

	// When u2 drops
	registry.Unregister("u2", connB)
	presence.Broadcast(context.Background())

	// Then the remaining connection sees u2 offline in the snapshot
	req.Equal([]protocol.PresenceEntry{
		{Identity: "u1", Online: true},
		{Identity: "u2", Online: false},
	}, sinkA.lastRoster())
}

func TestPresence_Run_Wakes_On_Registry_Mutation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	presence := NewPresenceBroadcaster(slog.Default(), registry)
	sink := newRecordingSink()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = presence.Run(ctx)
		close(done)
	}()

	registry.Register("u1", uuid.New(), sink)

	// Eventually the registered connection observes itself online
	req.Eventually(func() bool {
		roster := sink.lastRoster()
		return len(roster) == 1 && roster[0].Identity == "u1" && roster[0].Online
	}, eventuallyTimeout, eventuallyTick)

	cancel()
	<-done
}
