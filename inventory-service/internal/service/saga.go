package service

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/store"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"go.uber.org/zap"
)

// HandleEvent applies one inbound saga event. The event id, the state change and
// any reply event commit in one transaction, so a redelivered event is a no-op.
func (e *Engine) HandleEvent(ctx context.Context, env events.Envelope, ev events.Event) error {
	var outcome string
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		outcome = ""
		if err := tx.ClaimEvent(ctx, env.ID, string(env.Type)); err != nil {
			if errors.Is(err, store.ErrAlreadyProcessed) {
				outcome = "already processed"
				return nil
			}
			return err
		}

		var (
			status domain.MutationStatus
			err    error
		)
		switch ev := ev.(type) {
		case events.OrderPlaced:
			outcome, err = e.onOrderPlaced(ctx, tx, env, ev)
			return err
		case events.OrderCanceled:
			status, err = e.release(ctx, tx, ev.OrderID)
		case events.PaymentFailed:
			status, err = e.release(ctx, tx, ev.OrderID)
		case events.PaymentAuthorized:
			status, err = e.commit(ctx, tx, ev.OrderID)
			if err == nil && status == domain.MutationNoop {
				logger.Warn(ctx, e.logger, "payment authorized for a hold that is no longer reserved",
					zap.String("order_id", ev.OrderID))
			}
		case events.ShipmentCreated:
			status, err = e.commit(ctx, tx, ev.OrderID)
		case events.ShipmentCanceled:
			status, err = e.withdraw(ctx, tx, ev.OrderID)
		case events.ShipmentDispatched:
			status, err = e.deduct(ctx, tx, ev.OrderID)
		default:
			outcome = "ignored"
			return nil
		}
		outcome = string(status)
		return err
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, e.logger, "saga event applied",
		zap.String("event_id", env.ID),
		zap.String("event_type", string(env.Type)),
		zap.String("order_id", env.AggregateID),
		zap.String("outcome", outcome))
	return nil
}

func (e *Engine) onOrderPlaced(ctx context.Context, tx store.Tx, env events.Envelope, ev events.OrderPlaced) (string, error) {
	items := make([]domain.ReservationItem, len(ev.Items))
	for i, it := range ev.Items {
		items[i] = domain.ReservationItem{SKU: it.SKU, Quantity: it.Quantity}
	}

	res, err := e.reserve(ctx, tx, ReserveRequest{OrderID: ev.OrderID, Items: items, TTLSeconds: ev.TTLSeconds})
	if err != nil {
		return "", err
	}

	var reply events.Event
	switch res.Status {
	case domain.ReserveReserved:
		reply = events.StockReserved{OrderID: ev.OrderID, Items: toEventItems(res.Items), ExpiresAt: res.ExpiresAt}
	case domain.ReserveFailed:
		failed := events.StockReservationFailed{OrderID: ev.OrderID, Reason: res.Reason}
		for _, s := range res.InsufficientItems {
			failed.InsufficientItems = append(failed.InsufficientItems,
				events.InsufficientItem{SKU: s.SKU, Requested: s.Requested, Available: s.Available})
		}
		reply = failed
	default:
		// The original outcome was already emitted with the first reservation.
		return string(res.Status), nil
	}

	out, err := events.New(reply, events.Caused(env), events.WithClock(e.now))
	if err != nil {
		return "", err
	}
	if err := tx.Enqueue(ctx, out); err != nil {
		return "", err
	}
	return string(res.Status), nil
}

func toEventItems(items []domain.ReservationItem) []events.Item {
	out := make([]events.Item, len(items))
	for i, it := range items {
		out[i] = events.Item{SKU: it.SKU, Quantity: it.Quantity}
	}
	return out
}
