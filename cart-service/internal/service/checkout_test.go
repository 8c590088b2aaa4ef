package service

import (
	"context"
	"testing"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/pricing"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledCart(t *testing.T, f *fixture) *domain.Cart {
	t.Helper()
	ctx := context.Background()
	c := f.cart(t)
	c, err := f.svc.AddItem(ctx, c.ID, c.Version, item("A", 2))
	require.NoError(t, err)
	c, err = f.svc.AddItem(ctx, c.ID, c.Version, item("B", 1))
	require.NoError(t, err)
	return c
}

func prices(pairs ...string) *pricing.Quote {
	q := &pricing.Quote{}
	for i := 0; i < len(pairs); i += 2 {
		p := decimal.RequireFromString(pairs[i+1])
		q.Items = append(q.Items, pricing.QuotedItem{Key: pairs[i], UnitPrice: &p, Currency: "USD", Title: pairs[i]})
	}
	return q
}

func TestCheckout_Success(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := filledCart(t, f)
	f.pricing.quote = prices("A-1", "10.00", "B-1", "2.50")

	res, err := f.svc.Checkout(ctx, c.ID, c.Version, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", res.OrderID)

	snap := res.Snapshot
	require.NoError(t, snapshot.Verify(snap, secret))
	assert.Equal(t, c.ID, snap.CartID)
	assert.Equal(t, c.Version, snap.CartVersion)
	assert.Equal(t, "u-1", *snap.UserID)
	assert.Equal(t, 2, snap.Totals.ItemCount)
	assert.Equal(t, int64(3), snap.Totals.TotalQuantity)
	require.NotNil(t, snap.Totals.Subtotal)
	assert.True(t, snap.Totals.Subtotal.Equal(decimal.RequireFromString("22.50")))
	assert.Equal(t, "A-1", snap.Items[0].Title)

	require.Len(t, f.orders.calls, 1)
	assert.Equal(t, snap.ID, f.orders.calls[0].ID)
	assert.Equal(t, "key-1", f.orders.keys[0])

	got, err := f.svc.GetCart(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCheckedOut, got.Status)
	assert.Equal(t, "order-1", *got.CheckoutOrderID)
}

func TestCheckout_UnpricedItemLeavesSubtotalNull(t *testing.T) {
	f := setup(t)
	c := filledCart(t, f)
	f.pricing.quote = prices("A-1", "10.00")

	res, err := f.svc.Checkout(context.Background(), c.ID, c.Version, "")
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot.Totals.Subtotal)
	assert.Nil(t, res.Snapshot.Items[1].UnitPrice)
	assert.NotNil(t, res.Snapshot.Items[0].UnitPrice)
}

func TestCheckout_PricingDownFailsOpen(t *testing.T) {
	f := setup(t)
	c := filledCart(t, f)
	f.pricing.err = pricing.ErrUnavailable

	res, err := f.svc.Checkout(context.Background(), c.ID, c.Version, "")
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot.Totals.Subtotal)
	assert.Equal(t, int64(3), res.Snapshot.Totals.TotalQuantity)
}

func TestCheckout_ForeignCurrencyPriceIsUnpriced(t *testing.T) {
	f := setup(t)
	c := filledCart(t, f)
	q := prices("A-1", "10.00", "B-1", "1.00")
	q.Items[1].Currency = "EUR"
	f.pricing.quote = q

	res, err := f.svc.Checkout(context.Background(), c.ID, c.Version, "")
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot.Totals.Subtotal)
}

func TestCheckout_OrderFailureKeepsCartActive(t *testing.T) {
	for _, cause := range []error{domain.ErrCheckoutFailed, domain.ErrDependency} {
		t.Run(cause.Error(), func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			c := filledCart(t, f)
			f.orders.err = cause

			_, err := f.svc.Checkout(ctx, c.ID, c.Version, "")
			assert.ErrorIs(t, err, cause)

			got, err := f.svc.GetCart(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusActive, got.Status)
			assert.Equal(t, c.Version, got.Version)
		})
	}
}

func TestCheckout_RetryUsesSameSnapshotID(t *testing.T) {
	f := setup(t)
	c := filledCart(t, f)
	f.orders.err = domain.ErrDependency

	_, err := f.svc.Checkout(context.Background(), c.ID, c.Version, "")
	require.Error(t, err)
	f.orders.err = nil
	_, err = f.svc.Checkout(context.Background(), c.ID, c.Version, "")
	require.NoError(t, err)

	require.Len(t, f.orders.calls, 2)
	assert.Equal(t, f.orders.calls[0].ID, f.orders.calls[1].ID)
}

func TestCheckout_Preconditions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	empty := f.cart(t)
	_, err := f.svc.Checkout(ctx, empty.ID, empty.Version, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	c := filledCart(t, f)
	_, err = f.svc.Checkout(ctx, c.ID, c.Version-1, "")
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	res, err := f.svc.Checkout(ctx, c.ID, c.Version, "")
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderID)

	_, err = f.svc.Checkout(ctx, c.ID, c.Version+1, "")
	assert.ErrorIs(t, err, domain.ErrCartCheckedOut)

	_, err = f.svc.Checkout(ctx, "missing", 1, "")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.Len(t, f.orders.calls, 1)
}

func TestCheckout_TamperedSnapshotFailsVerification(t *testing.T) {
	f := setup(t)
	c := filledCart(t, f)

	res, err := f.svc.Checkout(context.Background(), c.ID, c.Version, "")
	require.NoError(t, err)

	tampered := res.Snapshot
	tampered.Items = append([]snapshot.Item(nil), tampered.Items...)
	tampered.Items[0].Quantity = 50
	assert.ErrorIs(t, snapshot.Verify(tampered, secret), snapshot.ErrInvalidSignature)
	assert.ErrorIs(t, snapshot.Verify(res.Snapshot, []byte("other")), snapshot.ErrInvalidSignature)
}
