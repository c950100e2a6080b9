package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"teamboard/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessageRepository persists direct messages in BadgerDB. It is the
// external persistence collaborator of the realtime core: the relays only
// ever call AppendMessage/FetchHistory/MarkRead, never raw queries.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type diskMessage struct {
	ID           uuid.UUID `json:"id"`
	Conversation string    `json:"conversation"`
	Sender       string    `json:"sender"`
	Recipient    string    `json:"recipient"`
	Content      string    `json:"content"`
	At           int64     `json:"at"` // unix nanoseconds, UTC
	Read         bool      `json:"read"`
}

// messageKey formats "msg:{conversation}:{timestamp_padded}:{uuid}" so that:
//  1. A prefix scan per conversation returns chronological order thanks to
//     the 19-digit zero padding (lexicographical order).
//  2. The UUID suffix disconnects collisions if two messages land on the
//     same nanosecond.
func messageKey(conversation string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", conversation, at.UnixNano(), id))
}

func conversationPrefix(conversation string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversation))
}

// AppendMessage assigns the persistent id and the server timestamp, then
// durably writes the message. The returned pair feeds the delivery
// acknowledgment back to the sender.
func (m MessageRepository) AppendMessage(conversation, sender, recipient, content string) (uuid.UUID, time.Time, error) {
	id := uuid.New()
	at := time.Now().UTC()
	record := diskMessage{
		ID:           id,
		Conversation: conversation,
		Sender:       sender,
		Recipient:    recipient,
		Content:      content,
		At:           at.UnixNano(),
	}
	bytes, err := json.Marshal(record)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(conversation, at, id), bytes)
	})
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	return id, at, nil
}

// FetchHistory returns the conversation's messages oldest first. When a
// limit is configured only the most recent window is kept; the scan order
// needs no sorting because the keys already sort chronologically.
func (m MessageRepository) FetchHistory(conversation string) ([]domain.Message, error) {
	var records []diskMessage
	prefix := conversationPrefix(conversation)

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record diskMessage
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if m.limitMessages != nil && len(records) > *m.limitMessages {
		m.log.Debug(fmt.Sprintf("Maximum of %d messages reached, trimming history", *m.limitMessages))
		records = records[len(records)-*m.limitMessages:]
	}

	return lo.Map(records, func(record diskMessage, _ int) domain.Message {
		return toDomainMessage(record)
	}), nil
}

// MarkRead flips every unread message authored by sender for recipient to
// read and returns how many rows changed. Direct conversations use the
// canonical pair key, so one prefix scan covers the whole thread. Calling
// it again is a no-op that returns zero.
func (m MessageRepository) MarkRead(sender, recipient string) (int, error) {
	count := 0
	prefix := conversationPrefix(domain.ConversationKey(sender, recipient))

	err := m.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var record diskMessage
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			if record.Sender != sender || record.Recipient != recipient || record.Read {
				continue
			}
			record.Read = true
			bytes, err := json.Marshal(record)
			if err != nil {
				return err
			}
			if err := txn.Set(item.KeyCopy(nil), bytes); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainMessage(record diskMessage) domain.Message {
	return domain.Message{
		ConversationID: record.Conversation,
		SenderID:       record.Sender,
		RecipientID:    record.Recipient,
		Content:        record.Content,
		PersistentID:   record.ID,
		CreatedAt:      time.Unix(0, record.At).UTC(),
		Read:           record.Read,
		State:          domain.StateDelivered,
	}
}
