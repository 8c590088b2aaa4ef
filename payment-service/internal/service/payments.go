package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"go.uber.org/zap"
)

// ErrIntentNotFound is returned when a reservation arrives before the order's
// payment intent. The event is redelivered until the intent exists.
var ErrIntentNotFound = errors.New("payment intent not found")

type Service struct {
	repo       repository.PaymentRepository
	authorizer Authorizer
	logger     *zap.Logger
	now        func() time.Time
}

func New(repo repository.PaymentRepository, a Authorizer, l *zap.Logger) *Service {
	return &Service{repo: repo, authorizer: a, logger: l, now: time.Now}
}

// WithClock replaces the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) GetPayment(ctx context.Context, orderID string) (*domain.Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// Capture settles an authorized payment and emits PaymentCaptured. It reports
// false when the payment was already captured.
func (s *Service) Capture(ctx context.Context, orderID string) (*domain.Payment, bool, error) {
	var (
		p       *domain.Payment
		changed bool
	)
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if p, err = tx.GetByOrderID(ctx, orderID); err != nil {
			return err
		}
		if changed, err = p.Capture(s.now().UTC()); err != nil || !changed {
			return err
		}
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		env, err := events.New(events.PaymentCaptured{OrderID: orderID}, events.WithClock(s.now))
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, env)
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		logger.Info(ctx, s.logger, "payment captured", zap.String("order_id", orderID))
	}
	return p, changed, nil
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
		case events.StockReserved:
			outcome, err = s.onStockReserved(ctx, tx, env, ev)
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
	err := tx.Create(ctx, domain.NewIntent(ev.OrderID, ev.AmountCents, ev.Currency, s.now().UTC()))
	if errors.Is(err, repository.ErrDuplicatePayment) {
		return "noop", nil
	}
	if err != nil {
		return "", err
	}
	return "intent created", nil
}

func (s *Service) onStockReserved(ctx context.Context, tx repository.Tx, env events.Envelope, ev events.StockReserved) (string, error) {
	p, err := tx.GetByOrderID(ctx, ev.OrderID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		return "", fmt.Errorf("%w: order %s", ErrIntentNotFound, ev.OrderID)
	}
	if err != nil {
		return "", err
	}
	if p.Decided() {
		return "noop", nil
	}

	decision := Decision{Reason: domain.ReasonAmountUnknown}
	if p.AmountCents != nil {
		if decision, err = s.authorizer.Authorize(ctx, *p); err != nil {
			return "", fmt.Errorf("authorize payment: %w", err)
		}
	}

	now := s.now().UTC()
	var out events.Event
	if decision.Approved {
		_, err = p.Authorize(now)
		out = events.PaymentAuthorized{OrderID: p.OrderID, AmountCents: *p.AmountCents, Currency: p.Currency}
	} else {
		_, err = p.Fail(decision.Reason, now)
		out = events.PaymentFailed{OrderID: p.OrderID, Reason: decision.Reason}
	}
	if err != nil {
		return "", err
	}
	if err := tx.Update(ctx, p); err != nil {
		return "", err
	}
	next, err := events.New(out, events.Caused(env), events.WithClock(s.now))
	if err != nil {
		return "", err
	}
	return string(p.Status), tx.Enqueue(ctx, next)
}
