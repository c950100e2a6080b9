package client

import "time"

// Backoff is the reconnection policy: capped exponential delays and a
// bounded attempt count, so a fleet of dashboards cannot thundering-herd a
// recovering server.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

func DefaultBackoff() Backoff {
	return Backoff{Base: 500 * time.Millisecond, Max: 30 * time.Second, MaxAttempts: 10}
}

// Next returns the delay before the given attempt (zero-based) and whether
// another attempt is allowed at all.
func (b Backoff) Next(attempt int) (time.Duration, bool) {
	if attempt >= b.MaxAttempts {
		return 0, false
	}
	delay := b.Base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			return b.Max, true
		}
	}
	return delay, true
}
