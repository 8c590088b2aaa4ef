package repository

import (
	"context"
	"testing"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_VersionGuard(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	c := domain.NewCart(nil, "USD", time.Now())
	require.NoError(t, repo.Create(ctx, c))

	c.ApplyCoupon("A")
	require.NoError(t, repo.Update(ctx, c, 1))
	assert.Equal(t, int64(2), c.Version)

	assert.ErrorIs(t, repo.Update(ctx, c, 1), domain.ErrVersionConflict)
	assert.ErrorIs(t, repo.Update(ctx, &domain.Cart{ID: "x"}, 1), domain.ErrCartNotFound)

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	got.Items = append(got.Items, domain.LineItem{SKU: "B"})

	again, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Items)
}
