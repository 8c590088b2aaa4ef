package membus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_FansOutPerGroup(t *testing.T) {
	bus := New()
	ctx := context.Background()

	var a, b []string
	bus.Subscribe("a", []string{"orders.events"}, func(_ context.Context, m broker.Message) error {
		a = append(a, string(m.Value))
		return nil
	})
	bus.Subscribe("b", []string{"orders.events", "payments.events"}, func(_ context.Context, m broker.Message) error {
		b = append(b, string(m.Value))
		return nil
	})

	require.NoError(t, bus.Publish(ctx, broker.Message{Topic: "orders.events", Value: []byte("1")}))
	require.NoError(t, bus.Publish(ctx, broker.Message{Topic: "payments.events", Value: []byte("2")}))

	n, err := bus.DeliverPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"1"}, a)
	assert.Equal(t, []string{"1", "2"}, b)
}

func TestDeliver_RedeliversUntilAck(t *testing.T) {
	bus := New()
	ctx := context.Background()

	calls := 0
	sub := bus.Subscribe("g", []string{"t"}, func(context.Context, broker.Message) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, bus.Publish(ctx, broker.Message{Topic: "t"}))

	_, err := sub.Deliver(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, sub.Pending())

	_, err = sub.Deliver(ctx)
	require.Error(t, err)

	n, err := sub.Deliver(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, sub.Pending())
	assert.Equal(t, 3, calls)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	bus := New()
	ctx, cancel := context.WithCancel(context.Background())

	var got atomic.Int32
	c := bus.Consumer("g", "t")
	c.RetryDelay = time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(context.Context, broker.Message) error {
			got.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		_ = bus.Publish(context.Background(), broker.Message{Topic: "t"})
		return got.Load() > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
