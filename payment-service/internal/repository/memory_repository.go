package repository

import (
	"context"
	"maps"
	"sync"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
)

// MemoryRepository keys payments by order id. Transactions are serialized and
// applied only when fn succeeds.
type MemoryRepository struct {
	mu        sync.RWMutex
	payments  map[string]domain.Payment
	processed map[string]struct{}
	outbox    *outbox.MemoryStore
}

func NewMemoryRepository(ob *outbox.MemoryStore) *MemoryRepository {
	return &MemoryRepository{
		payments:  make(map[string]domain.Payment),
		processed: make(map[string]struct{}),
		outbox:    ob,
	}
}

func (r *MemoryRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{repo: r, payments: make(map[string]domain.Payment), processed: make(map[string]struct{})}
	if err := fn(tx); err != nil {
		return err
	}

	// Rows first: a rejected row must not leave the state change behind.
	if err := r.outbox.Add(tx.outbox...); err != nil {
		return err
	}
	maps.Copy(r.payments, tx.payments)
	maps.Copy(r.processed, tx.processed)
	return nil
}

func (r *MemoryRepository) GetByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[orderID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

type memTx struct {
	repo      *MemoryRepository
	payments  map[string]domain.Payment
	processed map[string]struct{}
	outbox    []events.Envelope
}

func (t *memTx) ClaimEvent(_ context.Context, eventID, _ string) error {
	if _, ok := t.repo.processed[eventID]; ok {
		return ErrAlreadyProcessed
	}
	if _, ok := t.processed[eventID]; ok {
		return ErrAlreadyProcessed
	}
	t.processed[eventID] = struct{}{}
	return nil
}

func (t *memTx) GetByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	if p, ok := t.payments[orderID]; ok {
		return &p, nil
	}
	if p, ok := t.repo.payments[orderID]; ok {
		return &p, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (t *memTx) Create(ctx context.Context, p *domain.Payment) error {
	if _, err := t.GetByOrderID(ctx, p.OrderID); err == nil {
		return ErrDuplicatePayment
	}
	t.payments[p.OrderID] = *p
	return nil
}

func (t *memTx) Update(_ context.Context, p *domain.Payment) error {
	t.payments[p.OrderID] = *p
	return nil
}

func (t *memTx) Enqueue(_ context.Context, env events.Envelope) error {
	t.outbox = append(t.outbox, env)
	return nil
}
