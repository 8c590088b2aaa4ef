package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
)

// MemoryRepository keeps orders in process. Transactions are serialized and
// applied only when fn succeeds.
type MemoryRepository struct {
	mu        sync.RWMutex
	orders    map[string]domain.Order
	processed map[string]struct{}
	outbox    *outbox.MemoryStore
}

func NewMemoryRepository(ob *outbox.MemoryStore) *MemoryRepository {
	return &MemoryRepository{
		orders:    make(map[string]domain.Order),
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

	tx := &memTx{
		repo:      r,
		orders:    make(map[string]domain.Order),
		processed: make(map[string]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}

	// Rows first: a rejected row must not leave the state change behind.
	if err := r.outbox.Add(tx.outbox...); err != nil {
		return err
	}
	maps.Copy(r.orders, tx.orders)
	maps.Copy(r.processed, tx.processed)
	return nil
}

func (r *MemoryRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *MemoryRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memTx struct {
	repo      *MemoryRepository
	orders    map[string]domain.Order
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

func (t *memTx) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	if o, ok := t.orders[id]; ok {
		return clone(o), nil
	}
	if o, ok := t.repo.orders[id]; ok {
		return clone(o), nil
	}
	return nil, domain.ErrOrderNotFound
}

func (t *memTx) FindExisting(_ context.Context, snapshotID, idempotencyKey string) (*domain.Order, error) {
	for _, set := range []map[string]domain.Order{t.orders, t.repo.orders} {
		for _, o := range set {
			if matches(o, snapshotID, idempotencyKey) {
				return clone(o), nil
			}
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (t *memTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	key := ""
	if order.IdempotencyKey != nil {
		key = *order.IdempotencyKey
	}
	if _, err := t.FindExisting(ctx, order.Snapshot.ID, key); err == nil {
		return ErrDuplicateOrder
	}
	t.orders[order.ID] = *clone(*order)
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, order *domain.Order) error {
	t.orders[order.ID] = *clone(*order)
	return nil
}

func (t *memTx) Enqueue(_ context.Context, env events.Envelope) error {
	t.outbox = append(t.outbox, env)
	return nil
}

func matches(o domain.Order, snapshotID, idempotencyKey string) bool {
	if o.Snapshot.ID == snapshotID {
		return true
	}
	return idempotencyKey != "" && o.IdempotencyKey != nil && *o.IdempotencyKey == idempotencyKey
}

func clone(o domain.Order) *domain.Order {
	o.InsufficientItems = slices.Clone(o.InsufficientItems)
	o.Snapshot.Items = slices.Clone(o.Snapshot.Items)
	return &o
}
