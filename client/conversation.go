// Package client implements the dashboard-side half of the realtime
// protocol: the per-conversation reconciliation state machine, the typing
// debouncer and the reconnect policy.
package client

import (
	"sync"
	"time"

	"teamboard/domain"
	"teamboard/protocol"

	"github.com/google/uuid"
)

// Conversation owns the message list for one open chat view and reconciles
// optimistic local state against server-confirmed events. All methods are
// safe for concurrent use by the UI goroutine and the socket read loop.
type Conversation struct {
	mu       sync.Mutex
	selfID   string
	peerID   string
	key      string
	messages []domain.Message

	// onRead fires when an inbound message from the open peer should
	// trigger the read-receipt flow.
	onRead func(readerID, authorID string)
}

func NewConversation(selfID, peerID string, onRead func(readerID, authorID string)) *Conversation {
	return &Conversation{
		selfID: selfID,
		peerID: peerID,
		key:    domain.ConversationKey(selfID, peerID),
		onRead: onRead,
	}
}

func (c *Conversation) Key() string { return c.key }

// Send inserts the optimistic record (state sending, fresh temp id) and
// returns the wire command to put on the socket.
func (c *Conversation) Send(content string) protocol.SendMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	tempID := uuid.NewString()
	c.messages = append(c.messages, domain.Message{
		ConversationID: c.key,
		SenderID:       c.selfID,
		RecipientID:    c.peerID,
		Content:        content,
		TempID:         tempID,
		CreatedAt:      time.Now().UTC(),
		State:          domain.StateSending,
	})
	return protocol.SendMessage{
		ConversationID: c.key,
		RecipientID:    c.peerID,
		Content:        content,
		TempID:         tempID,
	}
}

// Retry re-issues a failed message as a brand new send with a fresh temp
// id; the failed entry is replaced by the new optimistic one. Returns false
// when the temp id does not name a failed entry.
func (c *Conversation) Retry(tempID string) (protocol.SendMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		if c.messages[i].TempID != tempID || c.messages[i].State != domain.StateFailed {
			continue
		}
		fresh := uuid.NewString()
		c.messages[i].TempID = fresh
		c.messages[i].State = domain.StateSending
		c.messages[i].CreatedAt = time.Now().UTC()
		return protocol.SendMessage{
			ConversationID: c.key,
			RecipientID:    c.peerID,
			Content:        c.messages[i].Content,
			TempID:         fresh,
		}, true
	}
	return protocol.SendMessage{}, false
}

// OnDelivered matches the acknowledgment to its optimistic entry by temp id
// and promotes it: server identity fields replace the speculative ones.
func (c *Conversation) OnDelivered(ack protocol.MessageDelivered) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		if c.messages[i].TempID != ack.TempID {
			continue
		}
		next, err := c.messages[i].State.Transition(domain.StateDelivered)
		if err != nil {
			return
		}
		c.messages[i].State = next
		if id, parseErr := uuid.Parse(ack.PersistentID); parseErr == nil {
			c.messages[i].PersistentID = id
		}
		c.messages[i].CreatedAt = ack.Timestamp
		return
	}
}

// OnError fails exactly the entry named by the temp id. The entry stays
// visible and user-retryable.
func (c *Conversation) OnError(failure protocol.MessageError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		if c.messages[i].TempID != failure.TempID {
			continue
		}
		next, err := c.messages[i].State.Transition(domain.StateFailed)
		if err != nil {
			return
		}
		c.messages[i].State = next
		return
	}
}

// OnInbound applies the dedup rule and appends the message when novel. A
// message whose sender and server timestamp both match an existing entry is
// a duplicate and is discarded silently. When the sender is the open peer,
// the read-receipt flow fires immediately. Reports whether the message was
// kept.
func (c *Conversation) OnInbound(msg protocol.MessageReceived) bool {
	c.mu.Lock()
	for _, existing := range c.messages {
		if existing.SenderID == msg.SenderID && existing.CreatedAt.Equal(msg.Timestamp) {
			c.mu.Unlock()
			return false
		}
	}

	record := domain.Message{
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		RecipientID:    msg.RecipientID,
		Content:        msg.Content,
		CreatedAt:      msg.Timestamp,
		State:          domain.StateDelivered,
	}
	if id, err := uuid.Parse(msg.PersistentID); err == nil {
		record.PersistentID = id
	}
	c.messages = append(c.messages, record)
	fromOpenPeer := msg.SenderID == c.peerID && msg.RecipientID == c.selfID
	c.mu.Unlock()

	if fromOpenPeer && c.onRead != nil {
		c.onRead(c.selfID, c.peerID)
	}
	return true
}

// OnReadAck sweeps the whole conversation: every message authored by the
// acknowledged author for the acknowledged reader flips to read. Coarse by
// design; the protocol cannot express "read up to message N".
func (c *Conversation) OnReadAck(ack protocol.ReadAck) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.messages {
		if c.messages[i].SenderID == ack.AuthorID && c.messages[i].RecipientID == ack.ReaderID {
			c.messages[i].Read = true
		}
	}
}

// Replace swaps the local list for server history, the pull-based catch-up
// after a reconnect. Pending optimistic entries are kept: their outcome
// (ack or error) is still owed by the server on the new connection's sends.
func (c *Conversation) Replace(history []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pending []domain.Message
	for _, m := range c.messages {
		if m.State == domain.StateSending || m.State == domain.StateFailed {
			pending = append(pending, m)
		}
	}
	c.messages = append(history[:len(history):len(history)], pending...)
}

// Messages returns a snapshot copy for rendering.
func (c *Conversation) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}
