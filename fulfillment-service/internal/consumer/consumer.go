package consumer

import (
	"context"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/saga"
	"go.uber.org/zap"
)

const GroupID = "fulfillment-service"

// Topics: orders for placement and cancellation, payments for capture.
var Topics = []string{events.TopicOrders, events.TopicPayments}

type Consumer struct {
	handler broker.Handler
}

func New(h saga.EventHandler, l *zap.Logger) *Consumer {
	return &Consumer{handler: saga.Handler(h, l.With(zap.String("consumer", GroupID)))}
}

func (c *Consumer) Handler() broker.Handler {
	return c.handler
}

func (c *Consumer) Run(ctx context.Context, source broker.Consumer) error {
	return source.Run(ctx, c.handler)
}
