package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesEnvelope(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ttl := int64(900)
	env, err := New(OrderPlaced{OrderID: "o-1", Items: []Item{{SKU: "A", Quantity: 2}}, TTLSeconds: &ttl},
		WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, TypeOrderPlaced, env.Type)
	assert.Equal(t, "o-1", env.AggregateID)
	assert.Equal(t, "order", env.AggregateType)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, at, env.OccurredAt)
	assert.Equal(t, env.ID, env.CorrelationID)
	assert.Empty(t, env.CausationID)
}

func TestCaused_PropagatesCorrelation(t *testing.T) {
	parent, err := New(OrderPlaced{OrderID: "o-1"}, WithCorrelationID("corr-1"))
	require.NoError(t, err)

	child, err := New(StockReserved{OrderID: "o-1"}, Caused(parent))
	require.NoError(t, err)

	assert.Equal(t, "corr-1", child.CorrelationID)
	assert.Equal(t, parent.ID, child.CausationID)
	assert.Equal(t, "reservation", child.AggregateType)
}

func TestDecode_RoundTripsEveryType(t *testing.T) {
	expires := time.Date(2024, 5, 1, 12, 15, 0, 0, time.UTC)
	cases := []Event{
		OrderPlaced{OrderID: "o", CartID: "c", Items: []Item{{SKU: "A", Quantity: 1}}},
		OrderCanceled{OrderID: "o", Reason: "payment declined"},
		StockReserved{OrderID: "o", Items: []Item{{SKU: "A", Quantity: 1}}, ExpiresAt: &expires},
		StockReservationFailed{OrderID: "o", Reason: ReasonInsufficientStock,
			InsufficientItems: []InsufficientItem{{SKU: "A", Requested: 2, Available: 1}}},
		PaymentAuthorized{OrderID: "o", AmountCents: 1999, Currency: "USD"},
		PaymentFailed{OrderID: "o", Reason: "declined"},
		PaymentCaptured{OrderID: "o"},
		ShipmentCreated{OrderID: "o", ShipmentID: "s", Items: []Item{{SKU: "A", Quantity: 1}}},
		ShipmentDispatched{OrderID: "o", ShipmentID: "s"},
		ShipmentCanceled{OrderID: "o", ShipmentID: "s", Reason: "customer"},
	}
	for _, ev := range cases {
		t.Run(string(ev.EventType()), func(t *testing.T) {
			env, err := New(ev)
			require.NoError(t, err)
			raw, err := env.Marshal()
			require.NoError(t, err)

			gotEnv, got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, env.ID, gotEnv.ID)
			assert.Equal(t, ev, got)
			assert.NotEmpty(t, TopicFor(ev.EventType()))
		})
	}
}

func TestDecode_WireFieldNames(t *testing.T) {
	raw := []byte(`{"id":"e-1","type":"inventory.stock.reservation_failed.v1","aggregateId":"o-1",
		"aggregateType":"reservation","occurredAt":"2024-05-01T12:00:00Z","version":1,
		"payload":{"orderId":"o-1","reason":"INSUFFICIENT_STOCK","insufficientItems":[{"sku":"A","requested":2,"available":1}]}}`)

	env, ev, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "o-1", env.AggregateID)
	failed, ok := ev.(StockReservationFailed)
	require.True(t, ok)
	assert.Equal(t, ReasonInsufficientStock, failed.Reason)
	assert.Equal(t, []InsufficientItem{{SKU: "A", Requested: 2, Available: 1}}, failed.InsufficientItems)
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, _, err = Decode([]byte(`{"type":"orders.order_placed.v1"}`))
	assert.ErrorIs(t, err, ErrMissingEnvelope)

	env, _, err := Decode([]byte(`{"id":"e-1","type":"orders.order_shipped.v9","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, "e-1", env.ID)

	_, _, err = Decode([]byte(`{"id":"e-1","type":"orders.order_placed.v1","payload":{"items":"nope"}}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestOrderPlaced_OmitsOptionalFields(t *testing.T) {
	raw, err := json.Marshal(OrderPlaced{OrderID: "o-1", Items: []Item{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":"o-1","items":[]}`, string(raw))
}
