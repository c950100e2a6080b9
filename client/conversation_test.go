package client

import (
	"testing"
	"time"

	"teamboard/domain"
	"teamboard/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestConversation_Optimistic_Send_Then_Ack(t *testing.T) {
	req := require.New(t)
	conversation := NewConversation("u1", "u2", nil)

	// When the user sends
	cmd := conversation.Send("hi")
	req.NotEmpty(cmd.TempID)
	req.Equal("u2", cmd.RecipientID)

	// Then the optimistic entry is visible immediately, still pending
	messages := conversation.Messages()
	req.Len(messages, 1)
	req.Equal(domain.StateSending, messages[0].State)

	// When the acknowledgment arrives for that temp id
	persistentID := uuid.New()
	at := time.Now().UTC()
	conversation.OnDelivered(protocol.MessageDelivered{
		TempID:       cmd.TempID,
		PersistentID: persistentID.String(),
		Timestamp:    at,
	})

	// Then the entry is promoted with server-confirmed identity fields
	messages = conversation.Messages()
	req.Equal(domain.StateDelivered, messages[0].State)
	req.Equal(persistentID, messages[0].PersistentID)
	req.Equal(at, messages[0].CreatedAt)
}

func TestConversation_Failed_Send_Stays_And_Retries_With_New_TempID(t *testing.T) {
	req := require.New(t)
	conversation := NewConversation("u1", "u2", nil)

	cmd := conversation.Send("doomed")
	conversation.OnError(protocol.MessageError{TempID: cmd.TempID, Reason: "store down"})

	// The failed entry remains visible
	messages := conversation.Messages()
	req.Len(messages, 1)
	req.Equal(domain.StateFailed, messages[0].State)

	// Retry re-issues with a fresh temp id; failed -> sending without a new
	// temp id is unrepresentable
	retry, ok := conversation.Retry(cmd.TempID)
	req.True(ok)
	req.NotEqual(cmd.TempID, retry.TempID)
	req.Equal("doomed", retry.Content)
	req.Equal(domain.StateSending, conversation.Messages()[0].State)

	// Retrying an unknown or non-failed temp id does nothing
	_, ok = conversation.Retry(cmd.TempID)
	req.False(ok)
}

func TestConversation_Ack_For_Unknown_TempID_Is_Ignored(t *testing.T) {
	req := require.New(t)
	conversation := NewConversation("u1", "u2", nil)

	conversation.OnDelivered(protocol.MessageDelivered{TempID: "ghost"})
	conversation.OnError(protocol.MessageError{TempID: "ghost"})
	req.Empty(conversation.Messages())
}

func TestConversation_Inbound_Dedup_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	conversation := NewConversation("u1", "u2", nil)

	at := time.Now().UTC()
	msg := protocol.MessageReceived{
		ConversationID: conversation.Key(),
		SenderID:       "u2",
		RecipientID:    "u1",
		Content:        "hello",
		PersistentID:   uuid.NewString(),
		Timestamp:      at,
	}

	req.True(conversation.OnInbound(msg))
	before := conversation.Messages()

	// Re-delivering the same (sender, server timestamp) pair changes nothing
	req.False(conversation.OnInbound(msg))
	req.Equal(before, conversation.Messages())

	// A different timestamp is a novel message
	msg.Timestamp = at.Add(time.Second)
	req.True(conversation.OnInbound(msg))
	req.Len(conversation.Messages(), 2)
}

func TestConversation_Inbound_From_Open_Peer_Triggers_Read_Flow(t *testing.T) {
	req := require.New(t)
	var reads [][2]string
	conversation := NewConversation("u1", "u2", func(readerID, authorID string) {
		reads = append(reads, [2]string{readerID, authorID})
	})

	conversation.OnInbound(protocol.MessageReceived{
		SenderID:    "u2",
		RecipientID: "u1",
		Content:     "ping",
		Timestamp:   time.Now().UTC(),
	})
	req.Equal([][2]string{{"u1", "u2"}}, reads)

	// A message not addressed to this view does not trigger it
	conversation.OnInbound(protocol.MessageReceived{
		SenderID:    "u3",
		RecipientID: "u1",
		Content:     "other thread",
		Timestamp:   time.Now().UTC(),
	})
	req.Len(reads, 1)
}

func TestConversation_ReadAck_Sweeps_Whole_Thread(t *testing.T) {
	req := require.New(t)
	conversation := NewConversation("u1", "u2", nil)

	first := conversation.Send("one")
	second := conversation.Send("two")
	conversation.OnDelivered(protocol.MessageDelivered{TempID: first.TempID, PersistentID: uuid.NewString(), Timestamp: time.Now().UTC()})
	conversation.OnDelivered(protocol.MessageDelivered{TempID: second.TempID, PersistentID: uuid.NewString(), Timestamp: time.Now().UTC()})

	conversation.OnReadAck(protocol.ReadAck{ReaderID: "u2", AuthorID: "u1", Timestamp: time.Now().UTC()})

	for _, m := range conversation.Messages() {
		req.True(m.Read)
	}

	// Sweeping again is a no-op with no observable difference
	before := conversation.Messages()
	conversation.OnReadAck(protocol.ReadAck{ReaderID: "u2", AuthorID: "u1", Timestamp: time.Now().UTC()})
	req.Equal(before, conversation.Messages())
}

func TestConversation_Replace_Keeps_Pending_Entries(t *testing.T) {
	req := require.New(t)
	conversation := NewConversation("u1", "u2", nil)

	pending := conversation.Send("unconfirmed")
	history := []domain.Message{
		{SenderID: "u2", RecipientID: "u1", Content: "from history", State: domain.StateDelivered},
	}

	// Reconnect catch-up replaces the list with server history
	conversation.Replace(history)

	messages := conversation.Messages()
	req.Len(messages, 2)
	req.Equal("from history", messages[0].Content)
	req.Equal(pending.TempID, messages[1].TempID)
	req.Equal(domain.StateSending, messages[1].State)
}
