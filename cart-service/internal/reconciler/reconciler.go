// Package reconciler closes carts whose checkout created an order but did not
// manage to mark the cart checked out.
package reconciler

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/saga"
	"go.uber.org/zap"
)

const GroupID = "cart-service"

var Topics = []string{events.TopicOrders}

type CartCloser interface {
	MarkCheckedOut(ctx context.Context, cartID, orderID string) (bool, error)
}

type Reconciler struct {
	carts   CartCloser
	logger  *zap.Logger
	handler broker.Handler
}

func New(carts CartCloser, l *zap.Logger) *Reconciler {
	l = l.With(zap.String("consumer", GroupID))
	r := &Reconciler{carts: carts, logger: l}
	r.handler = saga.Handler(r, l)
	return r
}

func (r *Reconciler) HandleEvent(ctx context.Context, env events.Envelope, ev events.Event) error {
	placed, ok := ev.(events.OrderPlaced)
	if !ok || placed.CartID == "" {
		return nil
	}

	changed, err := r.carts.MarkCheckedOut(ctx, placed.CartID, placed.OrderID)
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		logger.Warn(ctx, r.logger, "order placed for unknown cart",
			zap.String("cart_id", placed.CartID), zap.String("order_id", placed.OrderID))
		return nil
	case err != nil:
		return err
	}
	if changed {
		logger.Info(ctx, r.logger, "cart closed from order event",
			zap.String("cart_id", placed.CartID),
			zap.String("order_id", placed.OrderID),
			zap.String("event_id", env.ID))
	}
	return nil
}

func (r *Reconciler) Handler() broker.Handler {
	return r.handler
}

// Run consumes from source until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context, source broker.Consumer) error {
	return source.Run(ctx, r.handler)
}
