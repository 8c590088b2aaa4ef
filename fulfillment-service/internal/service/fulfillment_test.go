package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupService(t *testing.T) (*Service, *outbox.MemoryStore) {
	t.Helper()
	ob := outbox.NewMemoryStore()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := New(repository.NewMemoryRepository(ob), zap.NewNop()).
		WithClock(func() time.Time { return clock })
	return svc, ob
}

func deliver(t *testing.T, svc *Service, ev events.Event, opts ...events.Option) events.Envelope {
	t.Helper()
	env, err := events.New(ev, opts...)
	require.NoError(t, err)
	require.NoError(t, svc.HandleEvent(context.Background(), env, ev))
	return env
}

func outboxEvents(t *testing.T, ob *outbox.MemoryStore) []events.Event {
	t.Helper()
	var out []events.Event
	for _, row := range ob.All() {
		_, ev, err := events.Decode(row.Payload)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func placed(orderID string) events.OrderPlaced {
	return events.OrderPlaced{OrderID: orderID, Items: []events.Item{{SKU: "A", Quantity: 2}, {SKU: "B", Quantity: 1}}}
}

func TestPaymentCaptured_CreatesShipment(t *testing.T) {
	svc, ob := setupService(t)
	deliver(t, svc, placed("o-1"), events.WithCorrelationID("snap-1"))
	parent := deliver(t, svc, events.PaymentCaptured{OrderID: "o-1"}, events.WithCorrelationID("snap-1"))
	deliver(t, svc, events.PaymentCaptured{OrderID: "o-1"})

	sh, err := svc.GetShipment(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, sh.Status)
	assert.Equal(t, []domain.Item{{SKU: "A", Quantity: 2}, {SKU: "B", Quantity: 1}}, sh.Items)

	rows := ob.All()
	require.Len(t, rows, 1)
	env, ev, err := events.Decode(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, events.ShipmentCreated{
		OrderID:    "o-1",
		ShipmentID: sh.ID,
		Items:      []events.Item{{SKU: "A", Quantity: 2}, {SKU: "B", Quantity: 1}},
	}, ev)
	assert.Equal(t, parent.ID, env.CausationID)
	assert.Equal(t, "snap-1", env.CorrelationID)
}

func TestPaymentCaptured_DuplicateDeliveryIgnored(t *testing.T) {
	svc, ob := setupService(t)
	deliver(t, svc, placed("o-1"))

	ev := events.PaymentCaptured{OrderID: "o-1"}
	env, err := events.New(ev)
	require.NoError(t, err)
	require.NoError(t, svc.HandleEvent(context.Background(), env, ev))
	require.NoError(t, svc.HandleEvent(context.Background(), env, ev))

	assert.Len(t, ob.All(), 1)
}

func TestPaymentCaptured_UnknownOrderIsRetried(t *testing.T) {
	svc, ob := setupService(t)
	ev := events.PaymentCaptured{OrderID: "o-1"}
	env, err := events.New(ev)
	require.NoError(t, err)

	err = svc.HandleEvent(context.Background(), env, ev)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// the claim rolled back with the failure, so redelivery is applied
	deliver(t, svc, placed("o-1"))
	require.NoError(t, svc.HandleEvent(context.Background(), env, ev))
	assert.Len(t, ob.All(), 1)
}

func TestPaymentCaptured_AfterCancelIgnored(t *testing.T) {
	svc, ob := setupService(t)
	deliver(t, svc, placed("o-1"))
	deliver(t, svc, events.OrderCanceled{OrderID: "o-1", Reason: "payment declined"})
	deliver(t, svc, events.PaymentCaptured{OrderID: "o-1"})

	_, err := svc.GetShipment(context.Background(), "o-1")
	assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
	assert.Equal(t, []events.Event{events.ShipmentCanceled{OrderID: "o-1", Reason: "payment declined"}}, outboxEvents(t, ob))
}

func TestOrderCanceled_CancelsPendingShipment(t *testing.T) {
	svc, ob := setupService(t)
	deliver(t, svc, placed("o-1"))
	deliver(t, svc, events.PaymentCaptured{OrderID: "o-1"})
	cancel := deliver(t, svc, events.OrderCanceled{OrderID: "o-1", Reason: "customer request"})
	deliver(t, svc, events.OrderCanceled{OrderID: "o-1", Reason: "customer request"})

	sh, err := svc.GetShipment(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, sh.Status)
	assert.Equal(t, "customer request", *sh.CancelReason)

	var canceled []outbox.Event
	for _, row := range ob.All() {
		if row.EventType == string(events.TypeShipmentCanceled) {
			canceled = append(canceled, row)
		}
	}
	require.Len(t, canceled, 1)
	env, ev, err := events.Decode(canceled[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, events.ShipmentCanceled{OrderID: "o-1", ShipmentID: sh.ID, Reason: "customer request"}, ev)
	assert.Equal(t, cancel.ID, env.CausationID)

	_, _, err = svc.Dispatch(context.Background(), "o-1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestOrderCanceled_AfterDispatchKeepsShipment(t *testing.T) {
	svc, ob := setupService(t)
	deliver(t, svc, placed("o-1"))
	deliver(t, svc, events.PaymentCaptured{OrderID: "o-1"})
	_, _, err := svc.Dispatch(context.Background(), "o-1")
	require.NoError(t, err)

	deliver(t, svc, events.OrderCanceled{OrderID: "o-1", Reason: "late"})

	sh, err := svc.GetShipment(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDispatched, sh.Status)
	assert.NotContains(t, ob.Types(), string(events.TypeShipmentCanceled))
}

func TestDispatch(t *testing.T) {
	svc, ob := setupService(t)
	deliver(t, svc, placed("o-1"))
	deliver(t, svc, events.PaymentCaptured{OrderID: "o-1"})

	sh, changed, err := svc.Dispatch(context.Background(), "o-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.StatusDispatched, sh.Status)

	_, changed, err = svc.Dispatch(context.Background(), "o-1")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.ElementsMatch(t, []string{
		string(events.TypeShipmentCreated),
		string(events.TypeShipmentDispatched),
	}, ob.Types())
	assert.Contains(t, outboxEvents(t, ob), events.Event(events.ShipmentDispatched{OrderID: "o-1", ShipmentID: sh.ID}))
}

func TestDispatch_NotFound(t *testing.T) {
	svc, _ := setupService(t)
	_, _, err := svc.Dispatch(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
}

func TestHandleEvent_IgnoresOtherTypes(t *testing.T) {
	svc, ob := setupService(t)
	deliver(t, svc, events.StockReserved{OrderID: "o-1"})
	assert.Empty(t, ob.All())
}

type failingRepo struct{ repository.ShipmentRepository }

func (failingRepo) InTx(context.Context, func(repository.Tx) error) error {
	return errors.New("db down")
}

func TestHandleEvent_StoreFailure(t *testing.T) {
	svc := New(failingRepo{}, zap.NewNop())
	ev := placed("o-1")
	env, err := events.New(ev)
	require.NoError(t, err)
	assert.EqualError(t, svc.HandleEvent(context.Background(), env, ev), "db down")
}
