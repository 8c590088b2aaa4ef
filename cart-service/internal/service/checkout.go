package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/pricing"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// snapshotNamespace derives snapshot ids from cart id and version, so a retried
// checkout of an unchanged cart produces the same snapshot id and orders
// returns the order it already created.
var snapshotNamespace = uuid.MustParse("6f1c2a7e-5b1d-4c39-9a57-0d3b8e4f2c11")

type CheckoutResult struct {
	OrderID  string            `json:"orderId"`
	Snapshot snapshot.Snapshot `json:"snapshot"`
}

// Checkout prices the cart, signs a snapshot, creates the order and only then
// marks the cart checked out. Pricing failures do not block checkout: unpriced
// lines leave the subtotal unknown.
func (s *CartService) Checkout(ctx context.Context, cartID string, expectedVersion int64, idempotencyKey string) (*CheckoutResult, error) {
	cart, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Version != expectedVersion {
		return nil, fmt.Errorf("%w: have %d, expected %d", domain.ErrVersionConflict, cart.Version, expectedVersion)
	}
	if err := cart.EnsureActive(); err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}

	q, err := s.pricing.Quote(ctx, quoteRequest(cart))
	if err != nil {
		logger.Warn(ctx, s.logger, "pricing unavailable, checking out unpriced",
			zap.String("cart_id", cartID), zap.Error(err))
		q = &pricing.Quote{}
	}

	now := s.now().UTC()
	priced := priceCart(cart, q, now)
	snap, err := snapshot.Sign(buildSnapshot(cart, priced, now), s.cfg.SnapshotSecret)
	if err != nil {
		return nil, fmt.Errorf("sign snapshot: %w", err)
	}

	orderID, err := s.orders.CreateOrder(ctx, snap, idempotencyKey)
	if err != nil {
		logger.Error(ctx, s.logger, "order creation failed",
			zap.String("cart_id", cartID), zap.String("snapshot_id", snap.ID), zap.Error(err))
		return nil, err
	}

	cart.Pricing = priced
	cart.UpdatedAt = now
	if err := cart.MarkCheckedOut(orderID); err != nil {
		return nil, err
	}
	err = s.repo.Update(ctx, cart, expectedVersion)
	if errors.Is(err, domain.ErrVersionConflict) {
		// The cart moved while the order was being created. The order stands.
		_, err = s.MarkCheckedOut(ctx, cartID, orderID)
	}
	if err != nil {
		// The OrderPlaced reconciliation closes the cart later.
		logger.Warn(ctx, s.logger, "order created but cart not marked checked out",
			zap.String("cart_id", cartID), zap.String("order_id", orderID), zap.Error(err))
	}
	s.invalidateCache(ctx, cartID)

	logger.Info(ctx, s.logger, "cart checked out",
		zap.String("cart_id", cartID), zap.String("order_id", orderID), zap.String("snapshot_id", snap.ID))
	return &CheckoutResult{OrderID: orderID, Snapshot: snap}, nil
}

func quoteRequest(c *domain.Cart) pricing.QuoteRequest {
	req := pricing.QuoteRequest{Currency: c.Currency, Items: make([]pricing.QuoteItem, len(c.Items))}
	if c.Coupon != nil {
		req.Coupon = *c.Coupon
	}
	for i, it := range c.Items {
		req.Items[i] = pricing.QuoteItem{
			Key:             it.Key(),
			SKU:             it.SKU,
			VariantID:       it.VariantID,
			Quantity:        it.Quantity,
			SelectedOptions: it.SelectedOptions,
		}
	}
	return req
}

// priceCart matches quote lines to cart lines. A line priced in another
// currency counts as unpriced.
func priceCart(c *domain.Cart, q *pricing.Quote, now time.Time) *domain.PricingSnapshot {
	quoted := q.Lookup()
	p := &domain.PricingSnapshot{
		Items:    make([]domain.PricedItem, len(c.Items)),
		Currency: c.Currency,
		PricedAt: now,
	}
	if c.Coupon != nil {
		p.Coupon = *c.Coupon
	}

	subtotal := decimal.Zero
	complete := true
	for i, it := range c.Items {
		key := it.Key()
		pi := domain.PricedItem{Key: key, SKU: it.SKU, Quantity: it.Quantity}
		if qi, ok := quoted[key]; ok {
			pi.Title = qi.Title
			if qi.UnitPrice != nil && (qi.Currency == "" || qi.Currency == c.Currency) {
				price := *qi.UnitPrice
				pi.UnitPrice = &price
				pi.Currency = c.Currency
			}
		}
		if pi.UnitPrice == nil {
			complete = false
		} else {
			subtotal = subtotal.Add(pi.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
		}
		p.Items[i] = pi
	}
	if complete {
		p.Subtotal = &subtotal
	}
	return p
}

func buildSnapshot(c *domain.Cart, p *domain.PricingSnapshot, now time.Time) snapshot.Snapshot {
	s := snapshot.Snapshot{
		ID:          uuid.NewSHA1(snapshotNamespace, []byte(c.ID+":"+strconv.FormatInt(c.Version, 10))).String(),
		CartID:      c.ID,
		CartVersion: c.Version,
		UserID:      c.UserID,
		Currency:    c.Currency,
		Items:       make([]snapshot.Item, len(c.Items)),
		Totals: snapshot.Totals{
			ItemCount:     len(c.Items),
			TotalQuantity: c.TotalQuantity(),
			Subtotal:      p.Subtotal,
		},
		CapturedAt: now,
	}
	if c.Coupon != nil {
		s.Coupon = *c.Coupon
	}
	for i, it := range c.Items {
		pi := p.Items[i]
		s.Items[i] = snapshot.Item{
			SKU:             it.SKU,
			VariantID:       it.VariantID,
			Quantity:        it.Quantity,
			SelectedOptions: it.SelectedOptions,
			Title:           pi.Title,
			UnitPrice:       pi.UnitPrice,
			Currency:        pi.Currency,
		}
	}
	return s
}
