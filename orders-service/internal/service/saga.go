package service

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"go.uber.org/zap"
)

// HandleEvent applies one inbound saga event in a single transaction together
// with the claim of its envelope id.
func (s *Service) HandleEvent(ctx context.Context, env events.Envelope, ev events.Event) error {
	var outcome string
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		outcome = ""
		if err := tx.ClaimEvent(ctx, env.ID, string(env.Type)); err != nil {
			if errors.Is(err, repository.ErrAlreadyProcessed) {
				outcome = "already processed"
				return nil
			}
			return err
		}

		var err error
		switch ev := ev.(type) {
		case events.StockReserved:
			outcome, err = s.onStockReserved(ctx, tx, env, ev)
		case events.StockReservationFailed:
			outcome, err = s.onReservationFailed(ctx, tx, ev)
		case events.PaymentFailed:
			outcome, err = s.onPaymentFailed(ctx, tx, env, ev)
		default:
			outcome = "ignored"
		}
		return err
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, s.logger, "saga event applied",
		zap.String("event_id", env.ID),
		zap.String("event_type", string(env.Type)),
		zap.String("order_id", env.AggregateID),
		zap.String("outcome", outcome))
	return nil
}

// load returns nil for unknown orders, which every handler ignores.
func load(ctx context.Context, tx repository.Tx, id string) (*domain.Order, error) {
	o, err := tx.GetOrderByID(ctx, id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, nil
	}
	return o, err
}

// outcomeOf turns a transition result into a log outcome. Illegal transitions
// are expected under reordering and are not errors.
func outcomeOf(changed bool, err error) (string, error) {
	switch {
	case errors.Is(err, domain.ErrIllegalTransition):
		return "ignored: " + err.Error(), nil
	case err != nil:
		return "", err
	case !changed:
		return "noop", nil
	}
	return "applied", nil
}

func (s *Service) onStockReserved(ctx context.Context, tx repository.Tx, env events.Envelope, ev events.StockReserved) (string, error) {
	o, err := load(ctx, tx, ev.OrderID)
	if err != nil || o == nil {
		return "unknown order", err
	}
	now := s.now().UTC()
	changed, err := o.Confirm(now)
	outcome, err := outcomeOf(changed, err)
	if err != nil || !changed {
		return outcome, err
	}

	if o.PendingCancellation != nil {
		if _, err := o.Cancel(*o.PendingCancellation, now); err != nil {
			return "", err
		}
		return "confirmed then canceled", s.saveCanceled(ctx, tx, o, events.Caused(env))
	}
	return outcome, tx.UpdateOrder(ctx, o)
}

func (s *Service) onReservationFailed(ctx context.Context, tx repository.Tx, ev events.StockReservationFailed) (string, error) {
	o, err := load(ctx, tx, ev.OrderID)
	if err != nil || o == nil {
		return "unknown order", err
	}
	items := make([]domain.InsufficientItem, len(ev.InsufficientItems))
	for i, it := range ev.InsufficientItems {
		items[i] = domain.InsufficientItem{SKU: it.SKU, Requested: it.Requested, Available: it.Available}
	}
	changed, err := o.Reject(ev.Reason, items, s.now().UTC())
	outcome, err := outcomeOf(changed, err)
	if err != nil || !changed {
		return outcome, err
	}
	return outcome, tx.UpdateOrder(ctx, o)
}

// onPaymentFailed cancels a confirmed order. A failure that overtakes the
// reservation outcome is parked on the pending order and applied on confirm.
func (s *Service) onPaymentFailed(ctx context.Context, tx repository.Tx, env events.Envelope, ev events.PaymentFailed) (string, error) {
	o, err := load(ctx, tx, ev.OrderID)
	if err != nil || o == nil {
		return "unknown order", err
	}
	reason := ev.Reason
	if reason == "" {
		reason = "payment failed"
	}
	now := s.now().UTC()

	if o.Status == domain.OrderStatusPendingInventory {
		if !o.DeferCancellation(reason, now) {
			return "noop", nil
		}
		return "cancellation deferred", tx.UpdateOrder(ctx, o)
	}

	changed, err := o.Cancel(reason, now)
	outcome, err := outcomeOf(changed, err)
	if err != nil || !changed {
		return outcome, err
	}
	return outcome, s.saveCanceled(ctx, tx, o, events.Caused(env))
}
