package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"teamboard/errors"

	"github.com/stretchr/testify/require"
)

func TestEncode_Decode_Roundtrip(t *testing.T) {
	req := require.New(t)

	// Given a send command
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	frame, err := Encode(EventMessageReceived, MessageReceived{
		ConversationID: "u1:u2",
		SenderID:       "u1",
		RecipientID:    "u2",
		Content:        "hi",
		PersistentID:   "f2c8b5a0-0000-0000-0000-000000000000",
		Timestamp:      at,
	})
	req.NoError(err)

	// When the frame is decoded
	env, err := Decode(frame)
	req.NoError(err)
	req.Equal(EventMessageReceived, env.Type)

	// Then the payload unmarshals into the matching struct intact
	var msg MessageReceived
	req.NoError(json.Unmarshal(env.Payload, &msg))
	req.Equal("hi", msg.Content)
	req.Equal("u2", msg.RecipientID)
	req.True(at.Equal(msg.Timestamp))
}

func TestDecode_Rejects_Unknown_Event_Type(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{"type":"self_destruct","payload":{}}`))
	req.ErrorIs(err, errors.ErrUnknownEventType)
}

func TestDecode_Rejects_Malformed_Frame(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{"type": "register", "payload": `))
	req.ErrorIs(err, errors.ErrMalformedEvent)
}

func TestDecode_Accepts_Frame_Without_Payload(t *testing.T) {
	req := require.New(t)

	env, err := Decode([]byte(`{"type":"typing_start"}`))
	req.NoError(err)
	req.Equal(EventTypingStart, env.Type)
	req.Nil(env.Payload)
}
