package broker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
)

func TestKafka_RedeliversUntilHandlerSucceeds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	kc, err := tckafka.Run(ctx, "confluentinc/cp-kafka:7.5.0", tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err)
	defer func() {
		if err := kc.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()
	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)

	producer := NewKafkaProducer(brokers...)
	defer producer.Close()

	// First write creates the topic.
	require.Eventually(t, func() bool {
		return producer.Publish(ctx, Message{
			Topic:   "orders.events",
			Key:     "o-1",
			Value:   []byte(`{"id":"e-1"}`),
			Headers: map[string]string{HeaderEventID: "e-1"},
		}) == nil
	}, 30*time.Second, time.Second)

	consumer := NewKafkaConsumer(ConsumerConfig{
		Brokers:    brokers,
		GroupID:    "test-group",
		Topics:     []string{"orders.events"},
		Workers:    2,
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 50 * time.Millisecond,
	}, zap.NewNop())
	defer consumer.Close()

	var calls, ok atomic.Int32
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(runCtx, func(_ context.Context, m Message) error {
			if calls.Add(1) < 3 {
				return errors.New("transient")
			}
			assert.Equal(t, "e-1", m.Headers[HeaderEventID])
			ok.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return ok.Load() == 1 }, 60*time.Second, 100*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
