package repository

import (
	"context"
	"testing"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(orderID string) domain.Order {
	return domain.Order{OrderID: orderID, Items: []domain.Item{{SKU: "A", Quantity: 2}}}
}

func TestMemoryRepository_RollbackDiscardsEverything(t *testing.T) {
	ob := outbox.NewMemoryStore()
	repo := NewMemoryRepository(ob)
	ctx := context.Background()

	err := repo.InTx(ctx, func(tx Tx) error {
		o := testOrder("o-1")
		require.NoError(t, tx.ClaimEvent(ctx, "evt-1", "t"))
		require.NoError(t, tx.SaveOrder(ctx, &o))
		require.NoError(t, tx.CreateShipment(ctx, domain.NewShipment(o, time.Now())))
		env, err := events.New(events.ShipmentDispatched{OrderID: "o-1", ShipmentID: "s-1"})
		require.NoError(t, err)
		require.NoError(t, tx.Enqueue(ctx, env))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetShipment(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
	assert.Empty(t, ob.All())

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error {
		_, err := tx.GetOrder(ctx, "o-1")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		return tx.ClaimEvent(ctx, "evt-1", "t")
	}))
}

func TestMemoryRepository_ShipmentLifecycle(t *testing.T) {
	repo := NewMemoryRepository(outbox.NewMemoryStore())
	ctx := context.Background()
	o := testOrder("o-1")
	sh := domain.NewShipment(o, time.Now())

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error {
		if err := tx.SaveOrder(ctx, &o); err != nil {
			return err
		}
		return tx.CreateShipment(ctx, sh)
	}))

	err := repo.InTx(ctx, func(tx Tx) error { return tx.CreateShipment(ctx, domain.NewShipment(o, time.Now())) })
	assert.ErrorIs(t, err, ErrDuplicateShipment)

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error {
		got, err := tx.GetShipment(ctx, "o-1")
		require.NoError(t, err)
		_, err = got.Dispatch(time.Now())
		require.NoError(t, err)
		return tx.UpdateShipment(ctx, got)
	}))

	got, err := repo.GetShipment(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, sh.ID, got.ID)
	assert.Equal(t, domain.StatusDispatched, got.Status)

	err = repo.InTx(ctx, func(tx Tx) error { return tx.ClaimEvent(ctx, "evt-1", "t") })
	require.NoError(t, err)
	err = repo.InTx(ctx, func(tx Tx) error { return tx.ClaimEvent(ctx, "evt-1", "t") })
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository(outbox.NewMemoryStore())
	ctx := context.Background()
	o := testOrder("o-1")
	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.CreateShipment(ctx, domain.NewShipment(o, time.Now())) }))

	got, err := repo.GetShipment(ctx, "o-1")
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := repo.GetShipment(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Items[0].Quantity)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryRepository(outbox.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.InTx(ctx, func(Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
