package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/store"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/metrics"
	"go.uber.org/zap"
)

// Engine owns stock counters and reservations. Every operation runs in one
// store transaction.
type Engine struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(s store.Store, l *zap.Logger) *Engine {
	return &Engine{store: s, logger: l, now: time.Now}
}

// WithClock replaces the engine clock. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

type ReserveRequest struct {
	OrderID    string
	Items      []domain.ReservationItem
	TTLSeconds *int64
}

// Reserve places an all-or-nothing hold for an order. Business rejections are
// reported in the result, not as errors.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (domain.ReserveResult, error) {
	var res domain.ReserveResult
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		res, err = e.reserve(ctx, tx, req)
		return err
	})
	if errors.Is(err, store.ErrDuplicateReservation) {
		// A concurrent request for the same order won the insert; answer from its row.
		err = e.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			res, err = e.reserve(ctx, tx, req)
			return err
		})
	}
	return res, err
}

func (e *Engine) reserve(ctx context.Context, tx store.Tx, req ReserveRequest) (domain.ReserveResult, error) {
	if req.OrderID == "" {
		return domain.ReserveResult{Status: domain.ReserveFailed, Reason: domain.ReasonInvalidItems}, nil
	}

	existing, err := tx.GetReservation(ctx, req.OrderID)
	switch {
	case err == nil:
		return domain.ReserveResult{
			Status:    domain.ReserveDuplicate,
			Items:     existing.Items,
			ExpiresAt: existing.ExpiresAt,
		}, nil
	case !errors.Is(err, domain.ErrReservationNotFound):
		return domain.ReserveResult{}, err
	}

	items, err := domain.NormalizeItems(req.Items)
	if err != nil {
		return domain.ReserveResult{Status: domain.ReserveFailed, Reason: domain.ReasonInvalidItems}, nil
	}

	levels, err := tx.LockStock(ctx, domain.SKUs(items))
	if err != nil {
		return domain.ReserveResult{}, err
	}
	if short := domain.Shortages(levels, items); len(short) > 0 {
		return domain.ReserveResult{
			Status:            domain.ReserveFailed,
			Reason:            domain.ReasonInsufficientStock,
			InsufficientItems: short,
		}, nil
	}

	now := e.now().UTC()
	updated := make([]domain.StockLevel, 0, len(items))
	for _, it := range items {
		lvl := levels[it.SKU]
		lvl.Reserved += it.Quantity
		lvl.UpdatedAt = now
		updated = append(updated, lvl)
	}
	if err := tx.SaveStock(ctx, updated...); err != nil {
		return domain.ReserveResult{}, err
	}

	r := &domain.Reservation{
		OrderID:   req.OrderID,
		Items:     items,
		Status:    domain.StatusReserved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.TTLSeconds != nil && *req.TTLSeconds > 0 {
		exp := now.Add(time.Duration(*req.TTLSeconds) * time.Second)
		r.ExpiresAt = &exp
	}
	if err := tx.InsertReservation(ctx, r); err != nil {
		return domain.ReserveResult{}, err
	}

	return domain.ReserveResult{Status: domain.ReserveReserved, Items: items, ExpiresAt: r.ExpiresAt}, nil
}

func (e *Engine) Commit(ctx context.Context, orderID string) (domain.MutationStatus, error) {
	return e.mutate(ctx, orderID, e.commit)
}

func (e *Engine) Release(ctx context.Context, orderID string) (domain.MutationStatus, error) {
	return e.mutate(ctx, orderID, e.release)
}

// Deduct physically removes a committed hold from on-hand stock. A hold still
// waiting for its commit fails with ErrCommitPending, a freed one with ErrNotCommitted.
func (e *Engine) Deduct(ctx context.Context, orderID string) (domain.MutationStatus, error) {
	return e.mutate(ctx, orderID, e.deduct)
}

// Expire releases one overdue hold. Not-yet-due holds are left alone.
func (e *Engine) Expire(ctx context.Context, orderID string) (domain.MutationStatus, error) {
	return e.mutate(ctx, orderID, e.expire)
}

type mutation func(ctx context.Context, tx store.Tx, orderID string) (domain.MutationStatus, error)

func (e *Engine) mutate(ctx context.Context, orderID string, fn mutation) (domain.MutationStatus, error) {
	var status domain.MutationStatus
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		status, err = fn(ctx, tx, orderID)
		return err
	})
	return status, err
}

// loadForMutation returns nil with no error when the order has no reservation,
// which every mutation answers with noop.
func loadForMutation(ctx context.Context, tx store.Tx, orderID string) (*domain.Reservation, error) {
	r, err := tx.GetReservation(ctx, orderID)
	if errors.Is(err, domain.ErrReservationNotFound) {
		return nil, nil
	}
	return r, err
}

func (e *Engine) commit(ctx context.Context, tx store.Tx, orderID string) (domain.MutationStatus, error) {
	r, err := loadForMutation(ctx, tx, orderID)
	if err != nil || r == nil {
		return domain.MutationNoop, err
	}
	status := r.Commit(e.now().UTC())
	if !status.Changed() {
		return status, nil
	}
	return status, tx.UpdateReservation(ctx, r)
}

func (e *Engine) release(ctx context.Context, tx store.Tx, orderID string) (domain.MutationStatus, error) {
	r, err := loadForMutation(ctx, tx, orderID)
	if err != nil || r == nil {
		return domain.MutationNoop, err
	}
	now := e.now().UTC()
	status := r.Release(now)
	if !status.Changed() {
		return status, nil
	}
	return status, e.applyCounters(ctx, tx, r, now, 0, -1)
}

func (e *Engine) expire(ctx context.Context, tx store.Tx, orderID string) (domain.MutationStatus, error) {
	r, err := loadForMutation(ctx, tx, orderID)
	if err != nil || r == nil {
		return domain.MutationNoop, err
	}
	now := e.now().UTC()
	status := r.Expire(now)
	if !status.Changed() {
		return status, nil
	}
	return status, e.applyCounters(ctx, tx, r, now, 0, -1)
}

func (e *Engine) deduct(ctx context.Context, tx store.Tx, orderID string) (domain.MutationStatus, error) {
	r, err := loadForMutation(ctx, tx, orderID)
	if err != nil || r == nil {
		return domain.MutationNoop, err
	}
	now := e.now().UTC()
	status, err := r.Deduct(now)
	if err != nil || !status.Changed() {
		return status, err
	}
	return status, e.applyCounters(ctx, tx, r, now, -1, -1)
}

func (e *Engine) withdraw(ctx context.Context, tx store.Tx, orderID string) (domain.MutationStatus, error) {
	r, err := loadForMutation(ctx, tx, orderID)
	if err != nil || r == nil {
		return domain.MutationNoop, err
	}
	now := e.now().UTC()
	status := r.Withdraw(now)
	if !status.Changed() {
		return status, nil
	}
	return status, e.applyCounters(ctx, tx, r, now, 0, -1)
}

// applyCounters adds sign*quantity of every item to on-hand and reserved, then
// persists the reservation.
func (e *Engine) applyCounters(ctx context.Context, tx store.Tx, r *domain.Reservation, now time.Time, onHandSign, reservedSign int64) error {
	levels, err := tx.LockStock(ctx, domain.SKUs(r.Items))
	if err != nil {
		return err
	}
	updated := make([]domain.StockLevel, 0, len(r.Items))
	for _, it := range r.Items {
		lvl, ok := levels[it.SKU]
		if !ok {
			return fmt.Errorf("%w: %s held by order %s", domain.ErrSKUNotFound, it.SKU, r.OrderID)
		}
		lvl.OnHand += onHandSign * it.Quantity
		lvl.Reserved += reservedSign * it.Quantity
		if lvl.Reserved < 0 || lvl.OnHand < lvl.Reserved {
			return fmt.Errorf("stock counters for %s would go negative (on_hand=%d reserved=%d)", it.SKU, lvl.OnHand, lvl.Reserved)
		}
		lvl.UpdatedAt = now
		updated = append(updated, lvl)
	}
	if err := tx.SaveStock(ctx, updated...); err != nil {
		return err
	}
	return tx.UpdateReservation(ctx, r)
}

// ExpireDue expires up to limit overdue holds, each in its own transaction.
// It returns how many candidates were found and how many of them failed.
func (e *Engine) ExpireDue(ctx context.Context, limit int) (candidates, failed int, err error) {
	ids, err := e.store.ExpiredReservations(ctx, e.now().UTC(), limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list expired reservations: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		status, err := e.Expire(ctx, id)
		if err != nil {
			failed++
			metrics.SweepFailures.Inc()
			logger.Error(ctx, e.logger, "expire reservation failed", zap.String("order_id", id), zap.Error(err))
			continue
		}
		if status.Changed() {
			metrics.ReservationsExpired.Inc()
		}
		logger.Debug(ctx, e.logger, "reservation expired", zap.String("order_id", id), zap.String("status", string(status)))
	}
	return len(ids), failed, nil
}

func (e *Engine) GetStock(ctx context.Context, skus []string) ([]domain.StockLevel, error) {
	return e.store.GetStock(ctx, skus)
}

func (e *Engine) GetReservation(ctx context.Context, orderID string) (*domain.Reservation, error) {
	return e.store.GetReservation(ctx, orderID)
}

// SetStock sets the on-hand quantity of a sku, creating it if needed.
func (e *Engine) SetStock(ctx context.Context, sku string, onHand int64) (domain.StockLevel, error) {
	return e.adjust(ctx, sku, func(lvl *domain.StockLevel) { lvl.OnHand = onHand })
}

// AdjustStock adds delta (which may be negative) to the on-hand quantity.
func (e *Engine) AdjustStock(ctx context.Context, sku string, delta int64) (domain.StockLevel, error) {
	return e.adjust(ctx, sku, func(lvl *domain.StockLevel) { lvl.OnHand += delta })
}

func (e *Engine) adjust(ctx context.Context, sku string, fn func(*domain.StockLevel)) (domain.StockLevel, error) {
	if sku == "" {
		return domain.StockLevel{}, fmt.Errorf("%w: blank sku", domain.ErrInvalidItems)
	}
	var out domain.StockLevel
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		levels, err := tx.LockStock(ctx, []string{sku})
		if err != nil {
			return err
		}
		lvl, ok := levels[sku]
		if !ok {
			lvl = domain.StockLevel{SKU: sku}
		}
		fn(&lvl)
		if lvl.OnHand < lvl.Reserved || lvl.OnHand < 0 {
			return fmt.Errorf("%w: %s on_hand=%d reserved=%d", domain.ErrStockBelowReserved, sku, lvl.OnHand, lvl.Reserved)
		}
		lvl.UpdatedAt = e.now().UTC()
		out = lvl
		return tx.SaveStock(ctx, lvl)
	})
	return out, err
}
