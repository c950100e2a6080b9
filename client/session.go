package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RunSession keeps a registered socket alive across transport loss. After
// every successful dial it invokes onConnect, the hook where callers refetch
// history to catch up on events missed during the outage, then pumps events
// until the connection drops. Reconnects follow the backoff policy; a
// successful connection resets the attempt counter.
func RunSession(ctx context.Context, log *slog.Logger, baseURL, token, identity string,
	backoff Backoff, events Events, onConnect func(*Socket) error) error {
	attempt := 0
	for {
		socket, err := Dial(ctx, log, baseURL, token, identity)
		if err == nil {
			attempt = 0
			if onConnect != nil {
				if err := onConnect(socket); err != nil {
					socket.Close()
					return err
				}
			}
			err = socket.Listen(ctx, events)
			socket.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("Connection lost", "error", err)
		} else {
			log.Warn("Connect failed", "error", err)
		}

		delay, ok := backoff.Next(attempt)
		if !ok {
			return fmt.Errorf("giving up after %d reconnect attempts", attempt)
		}
		attempt++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
