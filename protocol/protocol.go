// Package protocol defines the framed events exchanged over a client
// connection. Every frame is an Envelope whose Type selects exactly one
// payload struct; decoding is exhaustive so an unrecognized type is a
// handled error, never a dropped goroutine.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"teamboard/errors"
)

type EventType string

const (
	// client -> server
	EventRegister    EventType = "register"
	EventSendMessage EventType = "send_message"
	EventTypingStart EventType = "typing_start"
	EventTypingStop  EventType = "typing_stop"
	EventMarkRead    EventType = "mark_read"

	// server -> client
	EventPresenceUpdate   EventType = "presence_update"
	EventMessageDelivered EventType = "message_delivered"
	EventMessageError     EventType = "message_error"
	EventMessageReceived  EventType = "message_received"
	EventTypingUpdate     EventType = "typing_update"
	EventReadAck          EventType = "read_ack"
)

// Envelope is the single frame format on the wire.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Register struct {
	Identity string `json:"identity" validate:"required"`
}

type SendMessage struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	RecipientID    string `json:"recipient_id" validate:"required"`
	Content        string `json:"content" validate:"required"`
	TempID         string `json:"temp_id" validate:"required"`
}

type TypingSignal struct {
	RecipientID    string `json:"recipient_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type MarkRead struct {
	ReaderID string `json:"reader_id" validate:"required"`
	AuthorID string `json:"author_id" validate:"required"`
}

type PresenceEntry struct {
	Identity string `json:"identity"`
	Online   bool   `json:"online"`
}

// PresenceUpdate carries the full roster snapshot. Clients replace their
// local roster with it, they never merge.
type PresenceUpdate struct {
	Roster []PresenceEntry `json:"roster"`
}

type MessageDelivered struct {
	TempID       string    `json:"temp_id"`
	PersistentID string    `json:"persistent_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// MessageError is scoped to a single optimistic message via TempID so the
// client can fail that entry and no other.
type MessageError struct {
	TempID string `json:"temp_id"`
	Reason string `json:"reason"`
}

type MessageReceived struct {
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Content        string    `json:"content"`
	PersistentID   string    `json:"persistent_id"`
	Timestamp      time.Time `json:"timestamp"`
}

type TypingUpdate struct {
	ActorID        string `json:"actor_id"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

type ReadAck struct {
	ReaderID  string    `json:"reader_id"`
	AuthorID  string    `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Encode wraps a payload into a marshalled Envelope frame.
func Encode(eventType EventType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// Decode parses a frame into its Envelope. The payload stays raw; callers
// dispatch on Type and unmarshal into the matching struct.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	if !knownTypes[env.Type] {
		return Envelope{}, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, env.Type)
	}
	return env, nil
}

var knownTypes = map[EventType]bool{
	EventRegister:         true,
	EventSendMessage:      true,
	EventTypingStart:      true,
	EventTypingStop:       true,
	EventMarkRead:         true,
	EventPresenceUpdate:   true,
	EventMessageDelivered: true,
	EventMessageError:     true,
	EventMessageReceived:  true,
	EventTypingUpdate:     true,
	EventReadAck:          true,
}
