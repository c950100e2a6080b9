// Package domain contains core concepts of the realtime messaging layer.
// This file defines Message records and their delivery lifecycle.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeliveryState is the client-visible lifecycle of one message.
type DeliveryState int

const (
	StateSending DeliveryState = iota
	StateDelivered
	StateFailed
)

func (s DeliveryState) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition returns the next state or an error when the move is not part
// of the lifecycle. A failed message never goes back to sending; retrying
// means a brand new message with a fresh temp id.
func (s DeliveryState) Transition(to DeliveryState) (DeliveryState, error) {
	switch {
	case s == StateSending && (to == StateDelivered || to == StateFailed):
		return to, nil
	default:
		return s, fmt.Errorf("invalid delivery transition %s -> %s", s, to)
	}
}

// Message is one direct message between two identities. TempID correlates
// the optimistic client record with the server-confirmed one; PersistentID
// is assigned by the durable store.
type Message struct {
	ConversationID string
	SenderID       string
	RecipientID    string
	Content        string
	TempID         string
	PersistentID   uuid.UUID
	CreatedAt      time.Time
	Read           bool
	State          DeliveryState
}

// ConversationKey builds the canonical id for a two-party conversation.
// Both orderings of the pair map to the same key.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}
