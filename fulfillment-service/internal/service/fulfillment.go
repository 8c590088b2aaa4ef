package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"go.uber.org/zap"
)

type Service struct {
	repo   repository.ShipmentRepository
	logger *zap.Logger
	now    func() time.Time
}

func New(repo repository.ShipmentRepository, l *zap.Logger) *Service {
	return &Service{repo: repo, logger: l, now: time.Now}
}

// WithClock replaces the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) GetShipment(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return s.repo.GetShipment(ctx, orderID)
}

// Dispatch hands the order's shipment to the carrier and emits
// ShipmentDispatched. It reports false when it was already dispatched.
func (s *Service) Dispatch(ctx context.Context, orderID string) (*domain.Shipment, bool, error) {
	var (
		sh      *domain.Shipment
		changed bool
	)
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if sh, err = tx.GetShipment(ctx, orderID); err != nil {
			return err
		}
		if changed, err = sh.Dispatch(s.now().UTC()); err != nil || !changed {
			return err
		}
		if err := tx.UpdateShipment(ctx, sh); err != nil {
			return err
		}
		env, err := events.New(events.ShipmentDispatched{OrderID: orderID, ShipmentID: sh.ID}, events.WithClock(s.now))
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, env)
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		logger.Info(ctx, s.logger, "shipment dispatched",
			zap.String("order_id", orderID), zap.String("shipment_id", sh.ID))
	}
	return sh, changed, nil
}

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
		case events.OrderPlaced:
			outcome, err = s.onOrderPlaced(ctx, tx, ev)
		case events.PaymentCaptured:
			outcome, err = s.onPaymentCaptured(ctx, tx, env, ev)
		case events.OrderCanceled:
			outcome, err = s.onOrderCanceled(ctx, tx, env, ev)
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

func (s *Service) onOrderPlaced(ctx context.Context, tx repository.Tx, ev events.OrderPlaced) (string, error) {
	_, err := tx.GetOrder(ctx, ev.OrderID)
	if err == nil {
		return "noop", nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return "", err
	}
	items := make([]domain.Item, len(ev.Items))
	for i, it := range ev.Items {
		items[i] = domain.Item{SKU: it.SKU, Quantity: it.Quantity}
	}
	return "order recorded", tx.SaveOrder(ctx, &domain.Order{OrderID: ev.OrderID, Items: items})
}

func (s *Service) onPaymentCaptured(ctx context.Context, tx repository.Tx, env events.Envelope, ev events.PaymentCaptured) (string, error) {
	o, err := tx.GetOrder(ctx, ev.OrderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return "", fmt.Errorf("%w: %s", domain.ErrOrderNotFound, ev.OrderID)
	}
	if err != nil {
		return "", err
	}
	if o.CanceledAt != nil {
		return "order canceled", nil
	}

	sh := domain.NewShipment(*o, s.now().UTC())
	err = tx.CreateShipment(ctx, sh)
	if errors.Is(err, repository.ErrDuplicateShipment) {
		return "noop", nil
	}
	if err != nil {
		return "", err
	}

	items := make([]events.Item, len(sh.Items))
	for i, it := range sh.Items {
		items[i] = events.Item{SKU: it.SKU, Quantity: it.Quantity}
	}
	next, err := events.New(events.ShipmentCreated{OrderID: sh.OrderID, ShipmentID: sh.ID, Items: items},
		events.Caused(env), events.WithClock(s.now))
	if err != nil {
		return "", err
	}
	return "shipment created", tx.Enqueue(ctx, next)
}

// onOrderCanceled stops a shipment that has not left and tells inventory the
// order will not ship, so a committed hold is freed too.
func (s *Service) onOrderCanceled(ctx context.Context, tx repository.Tx, env events.Envelope, ev events.OrderCanceled) (string, error) {
	now := s.now().UTC()
	sh, err := tx.GetShipment(ctx, ev.OrderID)
	switch {
	case err == nil:
		changed, err := sh.Cancel(ev.Reason, now)
		if errors.Is(err, domain.ErrIllegalTransition) {
			logger.Warn(ctx, s.logger, "order canceled after dispatch",
				zap.String("order_id", ev.OrderID), zap.String("shipment_id", sh.ID))
			return "already dispatched", nil
		}
		if err != nil || !changed {
			return "noop", err
		}
		if err := tx.UpdateShipment(ctx, sh); err != nil {
			return "", err
		}
		return "shipment canceled", s.shipmentCanceled(ctx, tx, env, events.ShipmentCanceled{
			OrderID: ev.OrderID, ShipmentID: sh.ID, Reason: ev.Reason,
		})
	case !errors.Is(err, domain.ErrShipmentNotFound):
		return "", err
	}

	o, err := tx.GetOrder(ctx, ev.OrderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		o = &domain.Order{OrderID: ev.OrderID, Items: []domain.Item{}}
	} else if err != nil {
		return "", err
	}
	if o.CanceledAt != nil {
		return "noop", nil
	}
	o.CanceledAt = &now
	if err := tx.SaveOrder(ctx, o); err != nil {
		return "", err
	}
	return "order canceled", s.shipmentCanceled(ctx, tx, env, events.ShipmentCanceled{OrderID: ev.OrderID, Reason: ev.Reason})
}

func (s *Service) shipmentCanceled(ctx context.Context, tx repository.Tx, cause events.Envelope, ev events.ShipmentCanceled) error {
	next, err := events.New(ev, events.Caused(cause), events.WithClock(s.now))
	if err != nil {
		return err
	}
	return tx.Enqueue(ctx, next)
}
