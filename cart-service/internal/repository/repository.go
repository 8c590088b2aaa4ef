package repository

import (
	"context"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	Create(ctx context.Context, cart *domain.Cart) error
	// Get returns domain.ErrCartNotFound for unknown ids.
	Get(ctx context.Context, id string) (*domain.Cart, error)
	// Update stores cart only if the stored version still equals expectedVersion,
	// and bumps cart.Version. A stale version returns domain.ErrVersionConflict.
	Update(ctx context.Context, cart *domain.Cart, expectedVersion int64) error
}
