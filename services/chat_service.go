package services

import (
	"context"

	"teamboard/contract"
	"teamboard/domain"
	"teamboard/protocol"
	"teamboard/runtime"

	"github.com/google/uuid"
)

// IChatService is the seam between the transport and the realtime core.
type IChatService interface {
	Register(identity string, connID uuid.UUID, sink contract.EventSink)
	Unregister(identity string, connID uuid.UUID)
	Send(ctx context.Context, senderID string, cmd protocol.SendMessage)
	Typing(ctx context.Context, actorID string, sig protocol.TypingSignal, isTyping bool)
	MarkRead(ctx context.Context, readerID string, cmd protocol.MarkRead)
	History(conversation string) ([]domain.Message, error)
}

type ChatService struct {
	registry *runtime.Registry
	relay    *runtime.Relay
	store    contract.MessageStore
}

func NewChatService(registry *runtime.Registry, relay *runtime.Relay, store contract.MessageStore) *ChatService {
	return &ChatService{registry: registry, relay: relay, store: store}
}

func (s *ChatService) Register(identity string, connID uuid.UUID, sink contract.EventSink) {
	s.registry.Register(identity, connID, sink)
}

func (s *ChatService) Unregister(identity string, connID uuid.UUID) {
	s.registry.Unregister(identity, connID)
}

func (s *ChatService) Send(ctx context.Context, senderID string, cmd protocol.SendMessage) {
	s.relay.HandleSend(ctx, senderID, cmd)
}

func (s *ChatService) Typing(ctx context.Context, actorID string, sig protocol.TypingSignal, isTyping bool) {
	s.relay.HandleTyping(ctx, actorID, sig, isTyping)
}

func (s *ChatService) MarkRead(ctx context.Context, readerID string, cmd protocol.MarkRead) {
	s.relay.HandleMarkRead(ctx, readerID, cmd)
}

func (s *ChatService) History(conversation string) ([]domain.Message, error) {
	return s.store.FetchHistory(conversation)
}
