package repository

import (
	"context"
	"testing"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(orderID string) *domain.Payment {
	amount := int64(2500)
	return domain.NewIntent(orderID, &amount, "USD", time.Now().UTC().Truncate(time.Microsecond))
}

func TestMemoryRepository_RollbackDiscardsEverything(t *testing.T) {
	ob := outbox.NewMemoryStore()
	repo := NewMemoryRepository(ob)
	ctx := context.Background()

	err := repo.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.ClaimEvent(ctx, "evt-1", "t"))
		require.NoError(t, tx.Create(ctx, newTestPayment("o-1")))
		env, err := events.New(events.PaymentCaptured{OrderID: "o-1"})
		require.NoError(t, err)
		require.NoError(t, tx.Enqueue(ctx, env))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetByOrderID(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	assert.Empty(t, ob.All())
}

func TestMemoryRepository_DuplicatesAndUpdates(t *testing.T) {
	repo := NewMemoryRepository(outbox.NewMemoryStore())
	ctx := context.Background()
	p := newTestPayment("o-1")
	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.Create(ctx, p) }))

	err := repo.InTx(ctx, func(tx Tx) error { return tx.Create(ctx, newTestPayment("o-1")) })
	assert.ErrorIs(t, err, ErrDuplicatePayment)

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error {
		got, err := tx.GetByOrderID(ctx, "o-1")
		require.NoError(t, err)
		_, err = got.Authorize(time.Now())
		require.NoError(t, err)
		return tx.Update(ctx, got)
	}))
	got, err := repo.GetByOrderID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, got.Status)
	assert.Equal(t, p.ID, got.ID)

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.ClaimEvent(ctx, "evt-1", "t") }))
	err = repo.InTx(ctx, func(tx Tx) error { return tx.ClaimEvent(ctx, "evt-1", "t") })
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}
