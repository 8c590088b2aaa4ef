package cache

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	Set(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop is used when no Redis is configured. Every read misses.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, *domain.Cart) error           { return nil }
func (Nop) Delete(context.Context, string) error              { return nil }
