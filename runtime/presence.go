package runtime

import (
	"context"
	"log/slog"
	"sort"

	"teamboard/domain"
	"teamboard/protocol"

	"github.com/samber/lo"
)

// PresenceBroadcaster derives the online/offline roster from registry
// membership and pushes the full snapshot to every live connection after
// each mutation. Broadcasting to everyone trades bandwidth for a simple
// invariant: every connected client converges to the registry's true state
// within one broadcast cycle.
type PresenceBroadcaster struct {
	log      *slog.Logger
	registry *Registry
	known    map[string]struct{}
}

func NewPresenceBroadcaster(log *slog.Logger, registry *Registry) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		log:      log,
		registry: registry,
		known:    make(map[string]struct{}),
	}
}

// Run wakes on every registry mutation. Signals coalesce; each wake
// recomputes and broadcasts the full roster, so a collapsed burst of
// mutations still converges in one cycle.
func (p *PresenceBroadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Context done, stopping presence broadcaster")
			return nil
		case <-p.registry.Mutations():
			p.Broadcast(ctx)
		}
	}
}

// Broadcast recomputes the roster and fans it out to all registered sinks.
// Identities seen earlier in the process lifetime but absent from the
// registry are reported offline.
func (p *PresenceBroadcaster) Broadcast(ctx context.Context) {
	online := p.registry.Roster()
	onlineSet := make(map[string]struct{}, len(online))
	for _, entry := range online {
		onlineSet[entry.Identity] = struct{}{}
		p.known[entry.Identity] = struct{}{}
	}

	roster := make(domain.Roster, 0, len(p.known))
	for identity := range p.known {
		_, isOnline := onlineSet[identity]
		roster = append(roster, domain.PresenceEntry{Identity: identity, Online: isOnline})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Identity < roster[j].Identity })

	update := protocol.PresenceUpdate{
		Roster: lo.Map(roster, func(entry domain.PresenceEntry, _ int) protocol.PresenceEntry {
			return protocol.PresenceEntry{Identity: entry.Identity, Online: entry.Online}
		}),
	}

	for _, sink := range p.registry.Sinks() {
		if err := sink.Consume(ctx, protocol.EventPresenceUpdate, update); err != nil {
			p.log.Warn("Presence update not delivered", "error", err)
		}
	}
}
