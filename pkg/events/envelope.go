package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownType     = errors.New("unknown event type")
	ErrMalformedEvent  = errors.New("malformed event")
	ErrMissingEnvelope = errors.New("envelope id and type are required")
)

// Envelope is the broker payload shared by every service.
type Envelope struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlationId,omitempty"`
	CausationID   string          `json:"causationId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type Option func(*Envelope)

func WithCorrelationID(id string) Option {
	return func(e *Envelope) { e.CorrelationID = id }
}

func WithCausationID(id string) Option {
	return func(e *Envelope) { e.CausationID = id }
}

// Caused marks the new envelope as a reaction to parent, keeping the saga correlation id.
func Caused(parent Envelope) Option {
	return func(e *Envelope) {
		e.CausationID = parent.ID
		e.CorrelationID = parent.CorrelationID
		if e.CorrelationID == "" {
			e.CorrelationID = parent.ID
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Envelope) { e.OccurredAt = now().UTC() }
}

// New wraps ev into a fresh envelope.
func New(ev Event, opts ...Option) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", ev.EventType(), err)
	}

	env := Envelope{
		ID:            uuid.NewString(),
		Type:          ev.EventType(),
		AggregateID:   ev.aggregateID(),
		AggregateType: ev.EventType().AggregateType(),
		OccurredAt:    time.Now().UTC(),
		Version:       1,
		Payload:       payload,
	}
	for _, opt := range opts {
		opt(&env)
	}
	if env.CorrelationID == "" {
		env.CorrelationID = env.ID
	}
	return env, nil
}

// Marshal returns the wire form of the envelope.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire envelope and its typed payload. Unknown types return the
// envelope together with ErrUnknownType so callers can acknowledge and skip them.
func Decode(raw []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return env, nil, ErrMissingEnvelope
	}

	ev, err := env.Type.zero()
	if err != nil {
		return env, nil, err
	}
	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return env, nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedEvent, env.Type, err)
	}
	return env, deref(ev), nil
}

// deref turns the pointer used for unmarshalling back into the value type consumers switch on.
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *OrderPlaced:
		return *e
	case *OrderCanceled:
		return *e
	case *StockReserved:
		return *e
	case *StockReservationFailed:
		return *e
	case *PaymentAuthorized:
		return *e
	case *PaymentFailed:
		return *e
	case *PaymentCaptured:
		return *e
	case *ShipmentCreated:
		return *e
	case *ShipmentDispatched:
		return *e
	case *ShipmentCanceled:
		return *e
	}
	return ev
}
