//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"teamboard/domain"
	"teamboard/protocol"

	"github.com/google/uuid"
)

// EventSink is one client's outbound channel. Consume must never block the
// caller: relays and the presence broadcaster run on other users' goroutines.
type EventSink interface {
	Consume(ctx context.Context, eventType protocol.EventType, payload any) error
}

// Registry maps an identity to its single live session. All three
// operations are linearizable with respect to each other.
type Registry interface {
	Register(identity string, connID uuid.UUID, sink EventSink)
	Lookup(identity string) (EventSink, bool)
	Unregister(identity string, connID uuid.UUID)
	Roster() domain.Roster
	Sinks() []EventSink
}

// MessageStore is the narrow interface to the external persistence
// collaborator. The realtime core never issues raw queries itself.
type MessageStore interface {
	AppendMessage(conversation, sender, recipient, content string) (uuid.UUID, time.Time, error)
	FetchHistory(conversation string) ([]domain.Message, error)
	MarkRead(sender, recipient string) (int, error)
}

type WorkerName string

// Worker doesn't protect itself; supervision wraps it.
type Worker interface {
	Run(ctx context.Context) error
}

type Supervisor interface {
	Add(worker ...Worker) Supervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision without manual naming in the interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
