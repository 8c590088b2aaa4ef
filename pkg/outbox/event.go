package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

var (
	ErrIllegalTransition = errors.New("illegal outbox transition")
	ErrEventNotFound     = errors.New("outbox event not found")
)

// Event is one outbox row. Payload holds the full wire envelope.
type Event struct {
	ID            string
	Topic         string
	EventType     string
	AggregateID   string
	AggregateType string
	CorrelationID string
	Payload       []byte
	Status        Status
	Attempts      int
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PublishedAt   *time.Time
}

// FromEnvelope builds the pending row for env.
func FromEnvelope(env events.Envelope) (Event, error) {
	topic := events.TopicFor(env.Type)
	if topic == "" {
		return Event{}, fmt.Errorf("%w: %s", events.ErrUnknownType, env.Type)
	}
	payload, err := env.Marshal()
	if err != nil {
		return Event{}, fmt.Errorf("marshal envelope %s: %w", env.ID, err)
	}
	return Event{
		ID:            env.ID,
		Topic:         topic,
		EventType:     string(env.Type),
		AggregateID:   env.AggregateID,
		AggregateType: env.AggregateType,
		CorrelationID: env.CorrelationID,
		Payload:       payload,
		Status:        StatusPending,
		CreatedAt:     env.OccurredAt,
		UpdatedAt:     env.OccurredAt,
	}, nil
}

func (e *Event) MarkPublished(now time.Time) error {
	if e.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, e.Status, StatusPublished)
	}
	e.Status = StatusPublished
	e.PublishedAt = &now
	e.UpdatedAt = now
	return nil
}

// RecordFailure counts a failed delivery. The row stays pending unless
// maxAttempts > 0 and has been reached, in which case it becomes failed.
func (e *Event) RecordFailure(cause string, maxAttempts int, now time.Time) error {
	if e.Status != StatusPending {
		return fmt.Errorf("%w: %s attempt failure", ErrIllegalTransition, e.Status)
	}
	e.Attempts++
	e.LastError = &cause
	e.UpdatedAt = now
	if maxAttempts > 0 && e.Attempts >= maxAttempts {
		e.Status = StatusFailed
	}
	return nil
}

// Requeue moves a failed row back to pending with a fresh attempt budget.
func (e *Event) Requeue(now time.Time) error {
	if e.Status != StatusFailed {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, e.Status, StatusPending)
	}
	e.Status = StatusPending
	e.Attempts = 0
	e.UpdatedAt = now
	return nil
}
