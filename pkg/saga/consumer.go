// Package saga adapts broker deliveries to typed event handlers.
package saga

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/metrics"
	"go.uber.org/zap"
)

// EventHandler applies one decoded event. It must be idempotent.
type EventHandler interface {
	HandleEvent(ctx context.Context, env events.Envelope, ev events.Event) error
}

type HandlerFunc func(ctx context.Context, env events.Envelope, ev events.Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, env events.Envelope, ev events.Event) error {
	return f(ctx, env, ev)
}

// Handler returns a broker.Handler for h. Messages that can never succeed
// (undecodable, unknown type, or failing with one of the permanent errors) are
// logged and acknowledged. Any other error is returned so the broker redelivers.
func Handler(h EventHandler, l *zap.Logger, permanent ...error) broker.Handler {
	return func(ctx context.Context, msg broker.Message) error {
		env, ev, err := events.Decode(msg.Value)
		if err != nil {
			if errors.Is(err, events.ErrUnknownType) {
				metrics.EventsConsumed.WithLabelValues(string(env.Type), metrics.OutcomeSkipped).Inc()
				logger.Debug(ctx, l, "skipping unknown event type",
					zap.String("topic", msg.Topic), zap.String("event_type", string(env.Type)))
				return nil
			}
			metrics.EventsConsumed.WithLabelValues("undecodable", metrics.OutcomeDropped).Inc()
			logger.Error(ctx, l, "dropping undecodable message",
				zap.String("topic", msg.Topic), zap.String("key", msg.Key), zap.Error(err))
			return nil
		}

		err = h.HandleEvent(ctx, env, ev)
		if err == nil {
			metrics.EventsConsumed.WithLabelValues(string(env.Type), metrics.OutcomeApplied).Inc()
			return nil
		}
		for _, p := range permanent {
			if errors.Is(err, p) {
				metrics.EventsConsumed.WithLabelValues(string(env.Type), metrics.OutcomeDropped).Inc()
				logger.Error(ctx, l, "dropping event after permanent failure",
					zap.String("event_id", env.ID),
					zap.String("event_type", string(env.Type)),
					zap.String("aggregate_id", env.AggregateID),
					zap.Error(err))
				return nil
			}
		}
		metrics.EventsConsumed.WithLabelValues(string(env.Type), metrics.OutcomeRetry).Inc()
		return err
	}
}
