package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"go.uber.org/zap"
)

// Service runs the order state machine. Every state change and the event it
// emits commit in one repository transaction.
type Service struct {
	repo           repository.OrderRepository
	secret         []byte
	reservationTTL time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func New(repo repository.OrderRepository, secret []byte, reservationTTL time.Duration, l *zap.Logger) *Service {
	return &Service{repo: repo, secret: secret, reservationTTL: reservationTTL, logger: l, now: time.Now}
}

// WithClock replaces the service clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateOrder verifies snap and creates a pending order together with its
// OrderPlaced event. A snapshot (or idempotency key) seen before returns the
// existing order and created=false.
func (s *Service) CreateOrder(ctx context.Context, snap snapshot.Snapshot, idempotencyKey string) (*domain.Order, bool, error) {
	if err := snapshot.Verify(snap, s.secret); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	if snap.ID == "" || snap.CartID == "" || len(snap.Items) == 0 {
		return nil, false, fmt.Errorf("%w: id, cart id and items are required", domain.ErrInvalidSnapshot)
	}

	var (
		order   *domain.Order
		created bool
	)
	attempt := func(tx repository.Tx) error {
		existing, err := tx.FindExisting(ctx, snap.ID, idempotencyKey)
		if err == nil {
			order, created = existing, false
			return nil
		}
		if !errors.Is(err, domain.ErrOrderNotFound) {
			return err
		}

		order = domain.NewOrder(snap, idempotencyKey, s.now().UTC())
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		env, err := s.orderPlaced(order)
		if err != nil {
			return err
		}
		created = true
		return tx.Enqueue(ctx, env)
	}

	err := s.repo.InTx(ctx, attempt)
	if errors.Is(err, repository.ErrDuplicateOrder) {
		// A concurrent request for the same snapshot won the insert.
		err = s.repo.InTx(ctx, attempt)
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		logger.Info(ctx, s.logger, "order created",
			zap.String("order_id", order.ID), zap.String("cart_id", order.CartID), zap.String("snapshot_id", snap.ID))
	}
	return order, created, nil
}

func (s *Service) orderPlaced(o *domain.Order) (events.Envelope, error) {
	ev := events.OrderPlaced{
		OrderID:  o.ID,
		CartID:   o.CartID,
		Items:    o.Items(),
		Currency: o.Currency,
	}
	if s.reservationTTL > 0 {
		ttl := int64(s.reservationTTL / time.Second)
		ev.TTLSeconds = &ttl
	}
	if cents, ok := o.Snapshot.TotalCents(); ok {
		ev.AmountCents = &cents
	}
	// The snapshot id ties every event of this checkout together.
	return events.New(ev, events.WithCorrelationID(o.Snapshot.ID), events.WithClock(s.now))
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

// CancelOrder cancels a confirmed order and tells inventory to release the hold.
func (s *Service) CancelOrder(ctx context.Context, id, reason string) (*domain.Order, error) {
	var order *domain.Order
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		o, err := tx.GetOrderByID(ctx, id)
		if err != nil {
			return err
		}
		order = o
		changed, err := o.Cancel(reason, s.now().UTC())
		if err != nil || !changed {
			return err
		}
		return s.saveCanceled(ctx, tx, o, events.WithCorrelationID(o.Snapshot.ID))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) saveCanceled(ctx context.Context, tx repository.Tx, o *domain.Order, opts ...events.Option) error {
	if err := tx.UpdateOrder(ctx, o); err != nil {
		return err
	}
	env, err := events.New(events.OrderCanceled{OrderID: o.ID, Reason: *o.CancellationReason},
		append(opts, events.WithClock(s.now))...)
	if err != nil {
		return err
	}
	return tx.Enqueue(ctx, env)
}
