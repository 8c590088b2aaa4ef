package repository

import (
	"context"
	"testing"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_RollbackDiscardsEverything(t *testing.T) {
	ob := outbox.NewMemoryStore()
	repo := NewMemoryRepository(ob)
	ctx := context.Background()
	o := newTestOrder("snap-1", "")

	err := repo.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.ClaimEvent(ctx, "evt-1", "t"))
		require.NoError(t, tx.CreateOrder(ctx, o))
		env, err := events.New(events.OrderPlaced{OrderID: o.ID})
		require.NoError(t, err)
		require.NoError(t, tx.Enqueue(ctx, env))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetOrderByID(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Empty(t, ob.All())
	assert.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.ClaimEvent(ctx, "evt-1", "t") }))
}

func TestMemoryRepository_Duplicates(t *testing.T) {
	repo := NewMemoryRepository(outbox.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.CreateOrder(ctx, newTestOrder("snap-1", "key-1")) }))

	err := repo.InTx(ctx, func(tx Tx) error { return tx.CreateOrder(ctx, newTestOrder("snap-1", "")) })
	assert.ErrorIs(t, err, ErrDuplicateOrder)
	err = repo.InTx(ctx, func(tx Tx) error { return tx.CreateOrder(ctx, newTestOrder("snap-2", "key-1")) })
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.ClaimEvent(ctx, "evt-1", "t") }))
	err = repo.InTx(ctx, func(tx Tx) error { return tx.ClaimEvent(ctx, "evt-1", "t") })
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository(outbox.NewMemoryStore())
	ctx := context.Background()
	o := newTestOrder("snap-1", "")
	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.CreateOrder(ctx, o) }))

	got, err := repo.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	got.Status = domain.OrderStatusCanceled

	again, err := repo.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPendingInventory, again.Status)
}
