package domain

// PresenceEntry is derived state: online is true exactly when the registry
// currently holds a connection for the identity. Never persisted.
type PresenceEntry struct {
	Identity string
	Online   bool
}

// Roster is a full presence snapshot. Receivers replace their previous
// roster with it wholesale.
type Roster []PresenceEntry
