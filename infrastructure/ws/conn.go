package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"teamboard/protocol"
	"teamboard/services"
	"teamboard/sink"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// connection is one authenticated client channel. The identity comes from
// the verified handshake credential; the connection becomes usable for
// send/receive only once the client has issued its register event.
type connection struct {
	log        *slog.Logger
	chat       services.IChatService
	identity   string
	connID     uuid.UUID
	sink       *sink.ConnectionSink
	registered bool
}

func newConnection(log *slog.Logger, chat services.IChatService, identity string, bufferSize int) *connection {
	return &connection{
		log:      log,
		chat:     chat,
		identity: identity,
		connID:   uuid.New(),
		sink:     sink.NewConnectionSink(log, bufferSize),
	}
}

// run owns the connection lifecycle: it starts the write pump, processes
// inbound frames in order until transport loss, then unregisters. The
// unregister is keyed by connection id, so if a newer registration for the
// same identity superseded this one, cleanup here is a no-op.
func (c *connection) run(ctx context.Context, conn *websocket.Conn) {
	go c.writePump(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Debug("Connection closed", "identity", c.identity, "error", err)
			break
		}
		c.dispatch(ctx, data)
	}

	if c.registered {
		c.chat.Unregister(c.identity, c.connID)
	}
	c.sink.Close()
}

// dispatch decodes one inbound frame and routes it. Malformed frames and
// unknown event types are dropped; nothing a client sends may crash its
// connection task.
func (c *connection) dispatch(ctx context.Context, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		c.log.Debug("Dropping inbound frame", "identity", c.identity, "error", err)
		return
	}

	switch env.Type {
	case protocol.EventRegister:
		// The payload names an identity, but the verified credential is
		// authoritative: the connection binds to the identity it
		// authenticated as, nothing else.
		c.chat.Register(c.identity, c.connID, c.sink)
		c.registered = true

	case protocol.EventSendMessage:
		if !c.registered {
			return
		}
		var cmd protocol.SendMessage
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			c.log.Debug("Dropping malformed send_message", "identity", c.identity, "error", err)
			return
		}
		c.chat.Send(ctx, c.identity, cmd)

	case protocol.EventTypingStart, protocol.EventTypingStop:
		if !c.registered {
			return
		}
		var sig protocol.TypingSignal
		if err := json.Unmarshal(env.Payload, &sig); err != nil {
			c.log.Debug("Dropping malformed typing signal", "identity", c.identity, "error", err)
			return
		}
		c.chat.Typing(ctx, c.identity, sig, env.Type == protocol.EventTypingStart)

	case protocol.EventMarkRead:
		if !c.registered {
			return
		}
		var cmd protocol.MarkRead
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			c.log.Debug("Dropping malformed mark_read", "identity", c.identity, "error", err)
			return
		}
		c.chat.MarkRead(ctx, c.identity, cmd)

	default:
		// Server-to-client event types arriving from a client.
		c.log.Debug("Dropping unexpected inbound event", "identity", c.identity, "type", env.Type)
	}
}

// writePump drains the sink buffer onto the wire. It exits when the sink is
// closed after the read loop returns, then tears the transport down.
func (c *connection) writePump(conn *websocket.Conn) {
	for frame := range c.sink.Outbound {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.log.Debug("Write failed", "identity", c.identity, "error", err)
			break
		}
	}
	_ = conn.Close()
}
