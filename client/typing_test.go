package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type typingSignal struct {
	conversationID string
	recipientID    string
	isTyping       bool
}

type typingRecorder struct {
	mu      sync.Mutex
	signals []typingSignal
}

func (r *typingRecorder) emit(conversationID, recipientID string, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, typingSignal{conversationID, recipientID, isTyping})
}

func (r *typingRecorder) snapshot() []typingSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]typingSignal, len(r.signals))
	copy(out, r.signals)
	return out
}

func TestTypingDebouncer_Burst_Yields_One_Start_One_Stop(t *testing.T) {
	req := require.New(t)
	recorder := &typingRecorder{}
	debouncer := NewTypingDebouncer(40*time.Millisecond, recorder.emit)
	defer debouncer.Close()

	// Given a burst of rapid keystrokes
	for i := 0; i < 10; i++ {
		debouncer.Keystroke("c1", "u2")
		time.Sleep(2 * time.Millisecond)
	}

	// Then only the first keystroke produced a signal
	req.Equal([]typingSignal{{"c1", "u2", true}}, recorder.snapshot())

	// When the idle window elapses, exactly one stop follows
	req.Eventually(func() bool {
		signals := recorder.snapshot()
		return len(signals) == 2 && signals[1] == typingSignal{"c1", "u2", false}
	}, 2*time.Second, 5*time.Millisecond)

	// And nothing else trails it
	time.Sleep(60 * time.Millisecond)
	req.Len(recorder.snapshot(), 2)
}

func TestTypingDebouncer_Sent_Stops_The_Burst_Immediately(t *testing.T) {
	req := require.New(t)
	recorder := &typingRecorder{}
	debouncer := NewTypingDebouncer(time.Minute, recorder.emit)
	defer debouncer.Close()

	debouncer.Keystroke("c1", "u2")
	debouncer.Sent("c1", "u2")

	req.Equal([]typingSignal{
		{"c1", "u2", true},
		{"c1", "u2", false},
	}, recorder.snapshot())

	// Sent outside a burst emits nothing
	debouncer.Sent("c1", "u2")
	req.Len(recorder.snapshot(), 2)
}

func TestTypingDebouncer_New_Keystroke_After_Stop_Starts_A_New_Burst(t *testing.T) {
	req := require.New(t)
	recorder := &typingRecorder{}
	debouncer := NewTypingDebouncer(time.Minute, recorder.emit)
	defer debouncer.Close()

	debouncer.Keystroke("c1", "u2")
	debouncer.Sent("c1", "u2")
	debouncer.Keystroke("c1", "u2")

	req.Equal([]typingSignal{
		{"c1", "u2", true},
		{"c1", "u2", false},
		{"c1", "u2", true},
	}, recorder.snapshot())
}

func TestTypingDebouncer_Conversations_Are_Independent(t *testing.T) {
	req := require.New(t)
	recorder := &typingRecorder{}
	debouncer := NewTypingDebouncer(time.Minute, recorder.emit)
	defer debouncer.Close()

	debouncer.Keystroke("c1", "u2")
	debouncer.Keystroke("c2", "u3")
	debouncer.Sent("c1", "u2")

	req.Equal([]typingSignal{
		{"c1", "u2", true},
		{"c2", "u3", true},
		{"c1", "u2", false},
	}, recorder.snapshot())
}

func TestTypingDebouncer_Close_Cancels_Without_Stop_Signals(t *testing.T) {
	req := require.New(t)
	recorder := &typingRecorder{}
	debouncer := NewTypingDebouncer(30*time.Millisecond, recorder.emit)

	debouncer.Keystroke("c1", "u2")
	debouncer.Close()

	time.Sleep(80 * time.Millisecond)
	req.Equal([]typingSignal{{"c1", "u2", true}}, recorder.snapshot())
}
