package consumer

import (
	"context"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/saga"
	"go.uber.org/zap"
)

const GroupID = "inventory-service"

// Topics carries order lifecycle, payment outcomes and shipment progress.
var Topics = []string{events.TopicOrders, events.TopicPayments, events.TopicFulfillment}

type Consumer struct {
	handler broker.Handler
}

func New(h saga.EventHandler, l *zap.Logger) *Consumer {
	return &Consumer{
		// Neither a hold on an unknown sku nor a dispatch of a freed hold is fixed by retrying.
		handler: saga.Handler(h, l.With(zap.String("consumer", GroupID)), domain.ErrSKUNotFound, domain.ErrNotCommitted),
	}
}

// Handler is the broker-facing handler, for buses that push messages.
func (c *Consumer) Handler() broker.Handler {
	return c.handler
}

// Run consumes from source until ctx is canceled.
func (c *Consumer) Run(ctx context.Context, source broker.Consumer) error {
	return source.Run(ctx, c.handler)
}
