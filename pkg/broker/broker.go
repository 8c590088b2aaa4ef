// Package broker is the thin seam between services and the message bus.
package broker

import (
	"context"
	"time"
)

// Header keys set by the outbox publisher.
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderCorrelationID = "correlation_id"
)

type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

type Producer interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler processes one message. A non-nil error leaves the message unacknowledged
// and it is delivered again.
type Handler func(ctx context.Context, msg Message) error

// Consumer drives a Handler until ctx is canceled.
type Consumer interface {
	Run(ctx context.Context, h Handler) error
}

// Backoff returns a capped exponential delay for the given retry attempt (0-based).
func Backoff(attempt int, minDelay, maxDelay time.Duration) time.Duration {
	d := minDelay
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
