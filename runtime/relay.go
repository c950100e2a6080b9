package runtime

import (
	"context"
	"log/slog"
	"time"

	"teamboard/contract"
	"teamboard/protocol"

	"github.com/go-playground/validator/v10"
)

// Relay routes send/typing/read events from a bound sender to the looked-up
// target connection. It owns no state of its own: the registry is read, the
// store is called outside any registry lock, and every failure stays scoped
// to the one message that caused it.
type Relay struct {
	log      *slog.Logger
	registry contract.Registry
	store    contract.MessageStore
	validate *validator.Validate
}

func NewRelay(log *slog.Logger, registry contract.Registry, store contract.MessageStore) *Relay {
	return &Relay{
		log:      log,
		registry: registry,
		store:    store,
		validate: validator.New(),
	}
}

// HandleSend performs the full send path: durable append, live delivery to
// the recipient if registered, and exactly one acknowledgment back to the
// sender keyed by temp id. A store failure surfaces as message_error for
// that temp id and nothing else; an offline recipient is not an error, the
// message waits in the store for the next history pull.
func (r *Relay) HandleSend(ctx context.Context, senderID string, cmd protocol.SendMessage) {
	if err := r.validate.Struct(cmd); err != nil {
		r.emit(ctx, senderID, protocol.EventMessageError, protocol.MessageError{
			TempID: cmd.TempID,
			Reason: "invalid send_message payload",
		})
		return
	}

	persistentID, timestamp, err := r.store.AppendMessage(cmd.ConversationID, senderID, cmd.RecipientID, cmd.Content)
	if err != nil {
		r.log.Error("Durable write failed", "sender", senderID, "temp_id", cmd.TempID, "error", err)
		r.emit(ctx, senderID, protocol.EventMessageError, protocol.MessageError{
			TempID: cmd.TempID,
			Reason: "message could not be stored",
		})
		return
	}

	r.emit(ctx, cmd.RecipientID, protocol.EventMessageReceived, protocol.MessageReceived{
		ConversationID: cmd.ConversationID,
		SenderID:       senderID,
		RecipientID:    cmd.RecipientID,
		Content:        cmd.Content,
		PersistentID:   persistentID.String(),
		Timestamp:      timestamp,
	})

	r.emit(ctx, senderID, protocol.EventMessageDelivered, protocol.MessageDelivered{
		TempID:       cmd.TempID,
		PersistentID: persistentID.String(),
		Timestamp:    timestamp,
	})
}

// HandleTyping forwards a start/stop signal verbatim to the addressed
// recipient. Stateless: nothing is queued or retried, typing has no value
// once the moment has passed.
func (r *Relay) HandleTyping(ctx context.Context, actorID string, sig protocol.TypingSignal, isTyping bool) {
	if err := r.validate.Struct(sig); err != nil {
		r.log.Debug("Dropping malformed typing signal", "actor", actorID, "error", err)
		return
	}
	r.emit(ctx, sig.RecipientID, protocol.EventTypingUpdate, protocol.TypingUpdate{
		ActorID:        actorID,
		ConversationID: sig.ConversationID,
		IsTyping:       isTyping,
	})
}

// HandleMarkRead flips every stored message from author to reader to read,
// then tells the author's live connection, if any. Re-marking already-read
// messages is a no-op with no observable difference.
func (r *Relay) HandleMarkRead(ctx context.Context, readerID string, cmd protocol.MarkRead) {
	if err := r.validate.Struct(cmd); err != nil {
		r.log.Debug("Dropping malformed mark_read", "reader", readerID, "error", err)
		return
	}

	count, err := r.store.MarkRead(cmd.AuthorID, readerID)
	if err != nil {
		r.log.Error("Read-state update failed", "reader", readerID, "author", cmd.AuthorID, "error", err)
		return
	}
	r.log.Debug("Messages marked read", "reader", readerID, "author", cmd.AuthorID, "count", count)

	r.emit(ctx, cmd.AuthorID, protocol.EventReadAck, protocol.ReadAck{
		ReaderID:  readerID,
		AuthorID:  cmd.AuthorID,
		Timestamp: time.Now().UTC(),
	})
}

// emit pushes an event to an identity's live sink. Sending to an absent or
// saturated connection is a no-op: the originating client may be gone, and
// no failure here may touch another user's state.
func (r *Relay) emit(ctx context.Context, identity string, eventType protocol.EventType, payload any) {
	sink, ok := r.registry.Lookup(identity)
	if !ok {
		return
	}
	if err := sink.Consume(ctx, eventType, payload); err != nil {
		r.log.Warn("Event not delivered", "identity", identity, "type", eventType, "error", err)
	}
}
