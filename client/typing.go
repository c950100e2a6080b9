package client

import (
	"sync"
	"time"
)

// DefaultTypingIdle is how long after the last keystroke the stop signal
// fires.
const DefaultTypingIdle = 2 * time.Second

// TypingDebouncer turns raw keystrokes into at most one start and one stop
// signal per typing burst. Timer entries live in one owned map, keyed by
// conversation, and are cancelled and re-armed through a single path so
// rapid conversation switches cannot leak timers.
type TypingDebouncer struct {
	mu     sync.Mutex
	idle   time.Duration
	emit   func(conversationID, recipientID string, isTyping bool)
	timers map[string]*time.Timer
}

func NewTypingDebouncer(idle time.Duration, emit func(conversationID, recipientID string, isTyping bool)) *TypingDebouncer {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &TypingDebouncer{
		idle:   idle,
		emit:   emit,
		timers: make(map[string]*time.Timer),
	}
}

// Keystroke registers typing activity. The first keystroke of a burst emits
// the start signal and arms the idle timer; every following keystroke only
// re-arms the timer, avoiding signal storms.
func (d *TypingDebouncer) Keystroke(conversationID, recipientID string) {
	d.mu.Lock()
	if timer, ok := d.timers[conversationID]; ok {
		timer.Reset(d.idle)
		d.mu.Unlock()
		return
	}
	d.timers[conversationID] = time.AfterFunc(d.idle, func() {
		d.expire(conversationID, recipientID)
	})
	d.mu.Unlock()

	d.emit(conversationID, recipientID, true)
}

// Sent disarms the burst on explicit send and emits the stop signal.
func (d *TypingDebouncer) Sent(conversationID, recipientID string) {
	d.mu.Lock()
	timer, ok := d.timers[conversationID]
	if ok {
		timer.Stop()
		delete(d.timers, conversationID)
	}
	d.mu.Unlock()

	if ok {
		d.emit(conversationID, recipientID, false)
	}
}

func (d *TypingDebouncer) expire(conversationID, recipientID string) {
	d.mu.Lock()
	_, ok := d.timers[conversationID]
	delete(d.timers, conversationID)
	d.mu.Unlock()

	if ok {
		d.emit(conversationID, recipientID, false)
	}
}

// Close cancels every armed timer without emitting stop signals, for view
// teardown.
func (d *TypingDebouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
