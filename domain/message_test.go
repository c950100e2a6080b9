package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeliveryState_Transition(t *testing.T) {
	cases := []struct {
		name    string
		from    DeliveryState
		to      DeliveryState
		wantErr bool
	}{
		{name: "sending to delivered", from: StateSending, to: StateDelivered},
		{name: "sending to failed", from: StateSending, to: StateFailed},
		{name: "delivered is terminal", from: StateDelivered, to: StateFailed, wantErr: true},
		{name: "failed cannot resume sending", from: StateFailed, to: StateSending, wantErr: true},
		{name: "failed is terminal", from: StateFailed, to: StateDelivered, wantErr: true},
		{name: "no self loop", from: StateSending, to: StateSending, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			next, err := tc.from.Transition(tc.to)
			if tc.wantErr {
				req.Error(err)
				req.Equal(tc.from, next)
				return
			}
			req.NoError(err)
			req.Equal(tc.to, next)
		})
	}
}

func TestConversationKey_Is_Order_Independent(t *testing.T) {
	req := require.New(t)
	req.Equal("u1:u2", ConversationKey("u1", "u2"))
	req.Equal("u1:u2", ConversationKey("u2", "u1"))
	req.NotEqual(ConversationKey("u1", "u2"), ConversationKey("u1", "u3"))
}
