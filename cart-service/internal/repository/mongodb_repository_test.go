package repository

import (
	"context"
	"testing"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) CartRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in -short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, MongoConfig{URI: uri, Database: "testdb", MaxPoolSize: 10})
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, EnsureIndexes(ctx, repo))
	return repo
}

func newCart(t *testing.T, repo CartRepository) *domain.Cart {
	t.Helper()
	user := "user123"
	c := domain.NewCart(&user, "USD", time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestMongoRepository(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "nonexistent")
		assert.ErrorIs(t, err, domain.ErrCartNotFound)

		err = repo.Update(ctx, &domain.Cart{ID: "nonexistent"}, 1)
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})

	t.Run("round trip with pricing", func(t *testing.T) {
		c := newCart(t, repo)
		require.NoError(t, c.AddItem(domain.LineItem{
			SKU: "A", VariantID: "A-1", Quantity: 2,
			SelectedOptions: map[string]string{"size": "M"},
			Metadata:        map[string]any{"note": "gift"},
		}, 99))
		price := decimal.RequireFromString("9.99")
		c.Pricing = &domain.PricingSnapshot{
			Items:    []domain.PricedItem{{Key: "A-1~size=M", SKU: "A", Quantity: 2, UnitPrice: &price, Currency: "USD"}},
			Currency: "USD",
			PricedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		require.NoError(t, repo.Update(ctx, c, 1))
		assert.Equal(t, int64(2), c.Version)

		got, err := repo.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "A-1~size=M", got.Items[0].Key())
		assert.Equal(t, "gift", got.Items[0].Metadata["note"])
		require.NotNil(t, got.Pricing)
		assert.Nil(t, got.Pricing.Subtotal)
		assert.True(t, got.Pricing.Items[0].UnitPrice.Equal(price))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		c := newCart(t, repo)
		first := c.Clone()
		second := c.Clone()

		first.ApplyCoupon("SAVE10")
		require.NoError(t, repo.Update(ctx, first, 1))

		second.ApplyCoupon("OTHER")
		err := repo.Update(ctx, second, 1)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		got, err := repo.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", *got.Coupon)
	})

	t.Run("cleared fields are removed", func(t *testing.T) {
		c := newCart(t, repo)
		c.ApplyCoupon("SAVE10")
		require.NoError(t, repo.Update(ctx, c, 1))
		c.ClearCoupon()
		require.NoError(t, c.MarkCheckedOut("o-1"))
		require.NoError(t, repo.Update(ctx, c, 2))

		got, err := repo.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Coupon)
		assert.Equal(t, domain.StatusCheckedOut, got.Status)
		assert.Equal(t, "o-1", *got.CheckoutOrderID)
	})

	t.Run("context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.Get(cctx, "user123")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
