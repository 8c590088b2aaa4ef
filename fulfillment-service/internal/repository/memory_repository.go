package repository

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
)

// MemoryRepository keeps orders and shipments in process, both keyed by order id.
type MemoryRepository struct {
	mu        sync.RWMutex
	orders    map[string]domain.Order
	shipments map[string]domain.Shipment
	processed map[string]struct{}
	outbox    *outbox.MemoryStore
}

func NewMemoryRepository(ob *outbox.MemoryStore) *MemoryRepository {
	return &MemoryRepository{
		orders:    make(map[string]domain.Order),
		shipments: make(map[string]domain.Shipment),
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
		shipments: make(map[string]domain.Shipment),
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
	maps.Copy(r.shipments, tx.shipments)
	maps.Copy(r.processed, tx.processed)
	return nil
}

func (r *MemoryRepository) GetShipment(_ context.Context, orderID string) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shipments[orderID]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	s.Items = slices.Clone(s.Items)
	return &s, nil
}

type memTx struct {
	repo      *MemoryRepository
	orders    map[string]domain.Order
	shipments map[string]domain.Shipment
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

func (t *memTx) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	o, ok := t.orders[orderID]
	if !ok {
		if o, ok = t.repo.orders[orderID]; !ok {
			return nil, domain.ErrOrderNotFound
		}
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

func (t *memTx) SaveOrder(_ context.Context, o *domain.Order) error {
	c := *o
	c.Items = slices.Clone(o.Items)
	t.orders[o.OrderID] = c
	return nil
}

func (t *memTx) GetShipment(_ context.Context, orderID string) (*domain.Shipment, error) {
	s, ok := t.shipments[orderID]
	if !ok {
		if s, ok = t.repo.shipments[orderID]; !ok {
			return nil, domain.ErrShipmentNotFound
		}
	}
	s.Items = slices.Clone(s.Items)
	return &s, nil
}

func (t *memTx) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	if _, err := t.GetShipment(ctx, s.OrderID); err == nil {
		return ErrDuplicateShipment
	}
	return t.UpdateShipment(ctx, s)
}

func (t *memTx) UpdateShipment(_ context.Context, s *domain.Shipment) error {
	c := *s
	c.Items = slices.Clone(s.Items)
	t.shipments[s.OrderID] = c
	return nil
}

func (t *memTx) Enqueue(_ context.Context, env events.Envelope) error {
	t.outbox = append(t.outbox, env)
	return nil
}
