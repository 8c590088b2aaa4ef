package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/cache"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/pricing"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("cart-secret")

type mockCache struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	getErr  error
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, id string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[c.ID] = c.Clone()
	return nil
}

func (m *mockCache) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.carts, id)
	return nil
}

func (m *mockCache) has(id string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[id]
	return ok
}

// countingRepo counts loads and can slow them down.
type countingRepo struct {
	repository.CartRepository
	gets  atomic.Int32
	delay time.Duration
}

func (r *countingRepo) Get(ctx context.Context, id string) (*domain.Cart, error) {
	r.gets.Add(1)
	time.Sleep(r.delay)
	return r.CartRepository.Get(ctx, id)
}

type mockPricing struct {
	quote *pricing.Quote
	err   error
	last  pricing.QuoteRequest
}

func (m *mockPricing) Quote(_ context.Context, req pricing.QuoteRequest) (*pricing.Quote, error) {
	m.last = req
	return m.quote, m.err
}

type mockOrders struct {
	orderID string
	err     error
	calls   []snapshot.Snapshot
	keys    []string
}

func (m *mockOrders) CreateOrder(_ context.Context, snap snapshot.Snapshot, key string) (string, error) {
	m.calls = append(m.calls, snap)
	m.keys = append(m.keys, key)
	return m.orderID, m.err
}

type fixture struct {
	svc     *CartService
	repo    *countingRepo
	cache   *mockCache
	pricing *mockPricing
	orders  *mockOrders
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    &countingRepo{CartRepository: repository.NewMemoryRepository()},
		cache:   newMockCache(),
		pricing: &mockPricing{quote: &pricing.Quote{}},
		orders:  &mockOrders{orderID: "order-1"},
	}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc = NewCartService(f.repo, f.cache, f.pricing, f.orders,
		Config{SnapshotSecret: secret, MaxItemQuantity: 10}, zap.NewNop()).
		WithClock(func() time.Time { return clock })
	return f
}

func (f *fixture) cart(t *testing.T) *domain.Cart {
	t.Helper()
	user := "u-1"
	c, err := f.svc.CreateCart(context.Background(), &user, "usd")
	require.NoError(t, err)
	return c
}

func item(sku string, qty int64) domain.LineItem {
	return domain.LineItem{SKU: sku, VariantID: sku + "-1", Quantity: qty}
}

func TestCreateCart_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.CreateCart(ctx, nil, " eur ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", c.Currency)
	assert.Nil(t, c.UserID)
	assert.Equal(t, int64(1), c.Version)

	_, err = f.svc.CreateCart(ctx, nil, "EURO")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.CreateCart(ctx, nil, "XXY")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetCart_ReadThrough(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.cart(t)
	f.repo.gets.Store(0)

	got, err := f.svc.GetCart(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, f.cache.has(c.ID))

	_, err = f.svc.GetCart(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.repo.gets.Load(), "second read is served from cache")

	_, err = f.svc.GetCart(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestGetCart_CacheErrorFallsBackToRepo(t *testing.T) {
	f := setup(t)
	c := f.cart(t)
	f.cache.getErr = errors.New("redis down")

	got, err := f.svc.GetCart(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestGetCart_ConcurrentMissesLoadOnce(t *testing.T) {
	f := setup(t)
	c := f.cart(t)
	f.repo.gets.Store(0)
	f.repo.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GetCart(context.Background(), c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, f.repo.gets.Load(), int32(20))
}

func TestMutations_BumpVersionAndInvalidateCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.cart(t)
	_, err := f.svc.GetCart(ctx, c.ID)
	require.NoError(t, err)

	c, err = f.svc.AddItem(ctx, c.ID, 1, item("A", 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Version)
	assert.False(t, f.cache.has(c.ID))

	c, err = f.svc.AddItem(ctx, c.ID, 2, item("A", 3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.Items[0].Quantity)

	c, err = f.svc.UpdateItem(ctx, c.ID, 3, "A-1", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Items[0].Quantity)

	c, err = f.svc.ApplyCoupon(ctx, c.ID, 4, " save10 ")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", *c.Coupon)

	c, err = f.svc.ClearCoupon(ctx, c.ID, 5)
	require.NoError(t, err)
	assert.Nil(t, c.Coupon)

	c, err = f.svc.RemoveItem(ctx, c.ID, 6, "A-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Equal(t, int64(7), c.Version)
}

func TestMutations_StaleVersionFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.cart(t)
	_, err := f.svc.AddItem(ctx, c.ID, 1, item("A", 1))
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, c.ID, 1, item("B", 1))
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	got, err := f.svc.GetCart(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestMutations_ConcurrentWritersOneWins(t *testing.T) {
	f := setup(t)
	c := f.cart(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.AddItem(context.Background(), c.ID, 1, item("A", 1)); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, domain.ErrVersionConflict)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMutations_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.cart(t)

	tests := []struct {
		name string
		item domain.LineItem
	}{
		{"missing sku", domain.LineItem{VariantID: "V", Quantity: 1}},
		{"missing variant", domain.LineItem{SKU: "A", Quantity: 1}},
		{"zero quantity", domain.LineItem{SKU: "A", VariantID: "V", Quantity: 0}},
		{"over max", domain.LineItem{SKU: "A", VariantID: "V", Quantity: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddItem(ctx, c.ID, 1, tt.item)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := f.svc.ApplyCoupon(ctx, c.ID, 1, "not valid!")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.UpdateItem(ctx, c.ID, 1, "nope", 1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	_, err = f.svc.AddItem(ctx, "missing", 1, item("A", 1))
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestRefreshPricing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.cart(t)
	c, err := f.svc.AddItem(ctx, c.ID, 1, item("A", 2))
	require.NoError(t, err)

	price := decimal.RequireFromString("4.25")
	f.pricing.quote = &pricing.Quote{Items: []pricing.QuotedItem{{Key: "A-1", UnitPrice: &price, Currency: "USD", Title: "Cup"}}}

	c, err = f.svc.RefreshPricing(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.Version)
	require.NotNil(t, c.Pricing)
	assert.True(t, c.Pricing.Subtotal.Equal(decimal.RequireFromString("8.50")))
	assert.Equal(t, "Cup", c.Pricing.Items[0].Title)

	f.pricing.err = pricing.ErrUnavailable
	_, err = f.svc.RefreshPricing(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrDependency)
}

func TestMarkCheckedOut_Idempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.cart(t)

	changed, err := f.svc.MarkCheckedOut(ctx, c.ID, "o-9")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.svc.MarkCheckedOut(ctx, c.ID, "o-9")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.svc.AddItem(ctx, c.ID, 2, item("A", 1))
	assert.ErrorIs(t, err, domain.ErrCartCheckedOut)
}
