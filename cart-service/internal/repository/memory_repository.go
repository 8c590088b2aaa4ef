package repository

import (
	"context"
	"sync"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
)

type MemoryRepository struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*domain.Cart)}
}

func (r *MemoryRepository) Create(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.ID] = cart.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, cart *domain.Cart, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.carts[cart.ID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	cart.Version = expectedVersion + 1
	r.carts[cart.ID] = cart.Clone()
	return nil
}
