package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
)

// MemoryStore implements Store with in-memory storage. Transactions are
// serialized and staged, so a failing fn leaves no trace.
type MemoryStore struct {
	mu           sync.RWMutex
	stocks       map[string]domain.StockLevel  // sku -> counters
	reservations map[string]domain.Reservation // orderID -> reservation
	processed    map[string]struct{}
	outbox       *outbox.MemoryStore
}

// NewMemoryStore creates a new in-memory inventory store
func NewMemoryStore(ob *outbox.MemoryStore) *MemoryStore {
	return &MemoryStore{
		stocks:       make(map[string]domain.StockLevel),
		reservations: make(map[string]domain.Reservation),
		processed:    make(map[string]struct{}),
		outbox:       ob,
	}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:        s,
		stocks:       make(map[string]domain.StockLevel),
		reservations: make(map[string]domain.Reservation),
		processed:    make(map[string]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}

	// Rows first: a rejected row must not leave the state change behind.
	if err := s.outbox.Add(tx.outbox...); err != nil {
		return err
	}
	maps.Copy(s.stocks, tx.stocks)
	maps.Copy(s.reservations, tx.reservations)
	maps.Copy(s.processed, tx.processed)
	return nil
}

// GetStock returns stock information for the given skus
func (s *MemoryStore) GetStock(_ context.Context, skus []string) ([]domain.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockLevel, 0, len(skus))
	for _, sku := range skus {
		if stock, exists := s.stocks[sku]; exists {
			result = append(result, stock)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetReservation(_ context.Context, orderID string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[orderID]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	r.Items = slices.Clone(r.Items)
	return &r, nil
}

func (s *MemoryStore) ExpiredReservations(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []domain.Reservation
	for _, r := range s.reservations {
		if r.IsExpired(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(*due[j].ExpiresAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]string, len(due))
	for i, r := range due {
		ids[i] = r.OrderID
	}
	return ids, nil
}

type memTx struct {
	store        *MemoryStore
	stocks       map[string]domain.StockLevel
	reservations map[string]domain.Reservation
	processed    map[string]struct{}
	outbox       []events.Envelope
}

func (t *memTx) ClaimEvent(_ context.Context, eventID, _ string) error {
	if _, ok := t.store.processed[eventID]; ok {
		return ErrAlreadyProcessed
	}
	if _, ok := t.processed[eventID]; ok {
		return ErrAlreadyProcessed
	}
	t.processed[eventID] = struct{}{}
	return nil
}

func (t *memTx) LockStock(_ context.Context, skus []string) (map[string]domain.StockLevel, error) {
	out := make(map[string]domain.StockLevel, len(skus))
	for _, sku := range skus {
		if lvl, ok := t.stocks[sku]; ok {
			out[sku] = lvl
		} else if lvl, ok := t.store.stocks[sku]; ok {
			out[sku] = lvl
		}
	}
	return out, nil
}

func (t *memTx) SaveStock(_ context.Context, levels ...domain.StockLevel) error {
	for _, lvl := range levels {
		t.stocks[lvl.SKU] = lvl
	}
	return nil
}

func (t *memTx) GetReservation(_ context.Context, orderID string) (*domain.Reservation, error) {
	r, ok := t.reservations[orderID]
	if !ok {
		r, ok = t.store.reservations[orderID]
	}
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	r.Items = slices.Clone(r.Items)
	return &r, nil
}

func (t *memTx) InsertReservation(_ context.Context, r *domain.Reservation) error {
	if _, ok := t.reservations[r.OrderID]; ok {
		return ErrDuplicateReservation
	}
	if _, ok := t.store.reservations[r.OrderID]; ok {
		return ErrDuplicateReservation
	}
	t.reservations[r.OrderID] = *r
	return nil
}

func (t *memTx) UpdateReservation(_ context.Context, r *domain.Reservation) error {
	t.reservations[r.OrderID] = *r
	return nil
}

func (t *memTx) Enqueue(_ context.Context, env events.Envelope) error {
	t.outbox = append(t.outbox, env)
	return nil
}
