// Package sink adapts outbound event delivery to per-connection buffers.
package sink

import (
	"context"
	"log/slog"
	"sync"

	"teamboard/errors"
	"teamboard/protocol"
)

// ConnectionSink buffers encoded frames for one live connection. Consume is
// called from other users' goroutines (relays, presence broadcaster) and
// never blocks them: a full buffer drops the frame and reports backpressure.
// The transport write pump drains Outbound.
//
// Producers can race the owning connection's teardown: a relay may resolve
// this sink from the registry just before the connection unregisters. Close
// and Consume therefore serialize on a mutex, and consuming after Close is
// an error, never a send on a closed channel.
type ConnectionSink struct {
	log      *slog.Logger
	mu       sync.Mutex
	closed   bool
	Outbound chan []byte
}

func NewConnectionSink(log *slog.Logger, bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		log:      log,
		Outbound: make(chan []byte, bufferSize),
	}
}

func (s *ConnectionSink) Consume(ctx context.Context, eventType protocol.EventType, payload any) error {
	frame, err := protocol.Encode(eventType, payload)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSinkClosed
	}
	select {
	case s.Outbound <- frame:
		return nil
	default:
		s.log.Warn("Backpressure: dropping frame", "type", eventType)
		return errors.ErrSinkFull
	}
}

// Close releases the write pump. Idempotent, and safe to call while other
// goroutines are still consuming: late Consumes report ErrSinkClosed.
func (s *ConnectionSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Outbound)
}
