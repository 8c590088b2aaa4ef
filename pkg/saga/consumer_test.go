package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errGone = errors.New("gone")

func message(t *testing.T, ev events.Event) broker.Message {
	t.Helper()
	env, err := events.New(ev)
	require.NoError(t, err)
	raw, err := env.Marshal()
	require.NoError(t, err)
	return broker.Message{Topic: events.TopicFor(ev.EventType()), Value: raw}
}

func TestHandler_DispatchesTypedEvent(t *testing.T) {
	var got events.Event
	h := Handler(HandlerFunc(func(_ context.Context, _ events.Envelope, ev events.Event) error {
		got = ev
		return nil
	}), zap.NewNop())

	require.NoError(t, h(context.Background(), message(t, events.PaymentCaptured{OrderID: "o-1"})))
	assert.Equal(t, events.PaymentCaptured{OrderID: "o-1"}, got)
}

func TestHandler_AcksPoisonAndUnknown(t *testing.T) {
	called := false
	h := Handler(HandlerFunc(func(context.Context, events.Envelope, events.Event) error {
		called = true
		return nil
	}), zap.NewNop())

	assert.NoError(t, h(context.Background(), broker.Message{Value: []byte("garbage")}))
	assert.NoError(t, h(context.Background(), broker.Message{Value: []byte(`{"id":"e","type":"x.y.v1","payload":{}}`)}))
	assert.False(t, called)
}

func TestHandler_ClassifiesErrors(t *testing.T) {
	errFail := errors.New("db down")
	var ret error
	h := Handler(HandlerFunc(func(context.Context, events.Envelope, events.Event) error { return ret }), zap.NewNop(), errGone)
	msg := message(t, events.OrderCanceled{OrderID: "o-1"})

	ret = errFail
	assert.ErrorIs(t, h(context.Background(), msg), errFail)

	ret = errors.Join(errGone, errors.New("context"))
	assert.NoError(t, h(context.Background(), msg))
}

func TestHandler_CountsOutcomes(t *testing.T) {
	typ := string(events.TypeOrderCanceled)
	retry := metrics.EventsConsumed.WithLabelValues(typ, metrics.OutcomeRetry)
	applied := metrics.EventsConsumed.WithLabelValues(typ, metrics.OutcomeApplied)
	retryBefore, appliedBefore := testutil.ToFloat64(retry), testutil.ToFloat64(applied)

	var ret error = errors.New("db down")
	h := Handler(HandlerFunc(func(context.Context, events.Envelope, events.Event) error { return ret }), zap.NewNop())
	msg := message(t, events.OrderCanceled{OrderID: "o-1"})

	require.Error(t, h(context.Background(), msg))
	ret = nil
	require.NoError(t, h(context.Background(), msg))

	assert.Equal(t, retryBefore+1, testutil.ToFloat64(retry))
	assert.Equal(t, appliedBefore+1, testutil.ToFloat64(applied))
}
