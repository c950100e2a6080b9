package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"teamboard/domain"
	"teamboard/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Events carries the callbacks invoked by the socket read loop, one per
// server-to-client event type.
type Events struct {
	OnPresence  func(protocol.PresenceUpdate)
	OnDelivered func(protocol.MessageDelivered)
	OnError     func(protocol.MessageError)
	OnInbound   func(protocol.MessageReceived)
	OnTyping    func(protocol.TypingUpdate)
	OnReadAck   func(protocol.ReadAck)
}

// Socket is one live connection to the realtime layer.
type Socket struct {
	log   *slog.Logger
	conn  *websocket.Conn
	token string
	base  string
}

// Dial opens the websocket against baseURL (http or https), presenting the
// credential at handshake time, and immediately registers the identity so
// the connection becomes usable for send/receive.
func Dial(ctx context.Context, log *slog.Logger, baseURL, token, identity string) (*Socket, error) {
	endpoint, err := wsEndpoint(baseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake refused (%d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}

	s := &Socket{log: log, conn: conn, token: token, base: strings.TrimSuffix(baseURL, "/")}
	if err := s.Emit(protocol.EventRegister, protocol.Register{Identity: identity}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func wsEndpoint(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	return u.String(), nil
}

// Emit frames and writes one event.
func (s *Socket) Emit(eventType protocol.EventType, payload any) error {
	frame, err := protocol.Encode(eventType, payload)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Listen pumps inbound frames into the callbacks until the transport drops
// or the context is cancelled. Malformed frames are logged and skipped.
func (s *Socket) Listen(ctx context.Context, events Events) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := protocol.Decode(data)
		if err != nil {
			s.log.Debug("Skipping unreadable frame", "error", err)
			continue
		}
		s.handle(env, events)
	}
}

func (s *Socket) handle(env protocol.Envelope, events Events) {
	switch env.Type {
	case protocol.EventPresenceUpdate:
		dispatch(s.log, env, events.OnPresence)
	case protocol.EventMessageDelivered:
		dispatch(s.log, env, events.OnDelivered)
	case protocol.EventMessageError:
		dispatch(s.log, env, events.OnError)
	case protocol.EventMessageReceived:
		dispatch(s.log, env, events.OnInbound)
	case protocol.EventTypingUpdate:
		dispatch(s.log, env, events.OnTyping)
	case protocol.EventReadAck:
		dispatch(s.log, env, events.OnReadAck)
	default:
		s.log.Debug("Ignoring unexpected server event", "type", env.Type)
	}
}

// dispatch decodes the payload into T and invokes the callback when set.
func dispatch[T any](log *slog.Logger, env protocol.Envelope, callback func(T)) {
	if callback == nil {
		return
	}
	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		log.Debug("Skipping undecodable payload", "type", env.Type, "error", err)
		return
	}
	callback(payload)
}

func (s *Socket) Close() {
	_ = s.conn.Close()
}

type historyRow struct {
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Content        string    `json:"content"`
	PersistentID   string    `json:"persistent_id"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
}

// FetchHistory pulls the durable conversation over plain request/response,
// the catch-up path after connect and reconnect.
func (s *Socket) FetchHistory(ctx context.Context, conversation string) ([]domain.Message, error) {
	endpoint := fmt.Sprintf("%s/api/history/%s", s.base, url.PathEscape(conversation))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history fetch failed with status %d", resp.StatusCode)
	}

	var rows []historyRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		m := domain.Message{
			ConversationID: row.ConversationID,
			SenderID:       row.SenderID,
			RecipientID:    row.RecipientID,
			Content:        row.Content,
			CreatedAt:      row.Timestamp,
			Read:           row.Read,
			State:          domain.StateDelivered,
		}
		if id, parseErr := uuid.Parse(row.PersistentID); parseErr == nil {
			m.PersistentID = id
		}
		messages = append(messages, m)
	}
	return messages, nil
}
