package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrValidation      = errors.New("validation failed")
	ErrVersionConflict = errors.New("cart version conflict")
	ErrCartCheckedOut  = errors.New("cart is checked out")
	ErrCheckoutFailed  = errors.New("checkout failed")
	ErrDependency      = errors.New("dependency unavailable")
)

type Status string

const (
	StatusActive     Status = "active"
	StatusCheckedOut Status = "checked_out"
)

type LineItem struct {
	SKU             string            `json:"sku" validate:"required,max=128"`
	VariantID       string            `json:"variantId" validate:"required,max=128"`
	Quantity        int64             `json:"quantity" validate:"gte=1"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty" validate:"max=32"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
}

// Key identifies a line: the variant plus its selected options in key order.
// Two adds of the same variant with the same options merge into one line.
func (i LineItem) Key() string {
	if len(i.SelectedOptions) == 0 {
		return i.VariantID
	}
	names := slices.Sorted(maps.Keys(i.SelectedOptions))
	parts := make([]string, len(names))
	for n, name := range names {
		parts[n] = name + "=" + i.SelectedOptions[name]
	}
	return i.VariantID + "~" + strings.Join(parts, ";")
}

type PricedItem struct {
	Key       string           `json:"key"`
	SKU       string           `json:"sku"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Currency  string           `json:"currency,omitempty"`
	Title     string           `json:"title,omitempty"`
}

// PricingSnapshot is the last quote stored on the cart. Subtotal is nil when
// any line could not be priced.
type PricingSnapshot struct {
	Items    []PricedItem     `json:"items"`
	Subtotal *decimal.Decimal `json:"subtotal"`
	Currency string           `json:"currency"`
	Coupon   string           `json:"coupon,omitempty"`
	PricedAt time.Time        `json:"pricedAt"`
}

type Cart struct {
	ID              string           `json:"id"`
	UserID          *string          `json:"userId,omitempty"`
	Currency        string           `json:"currency"`
	Items           []LineItem       `json:"items"`
	Coupon          *string          `json:"coupon,omitempty"`
	Pricing         *PricingSnapshot `json:"pricing,omitempty"`
	Status          Status           `json:"status"`
	Version         int64            `json:"version"`
	CheckoutOrderID *string          `json:"checkoutOrderId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func NewCart(userID *string, currency string, now time.Time) *Cart {
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Currency:  strings.ToUpper(currency),
		Items:     []LineItem{},
		Status:    StatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) EnsureActive() error {
	if c.Status != StatusActive {
		return ErrCartCheckedOut
	}
	return nil
}

func (c *Cart) indexOf(key string) int {
	return slices.IndexFunc(c.Items, func(it LineItem) bool { return it.Key() == key })
}

// AddItem merges item into the line with the same key or appends it.
func (c *Cart) AddItem(item LineItem, maxQuantity int64) error {
	i := c.indexOf(item.Key())
	if i < 0 {
		if item.Quantity > maxQuantity {
			return fmt.Errorf("%w: quantity %d exceeds %d", ErrValidation, item.Quantity, maxQuantity)
		}
		c.Items = append(c.Items, item)
		return nil
	}

	total := c.Items[i].Quantity + item.Quantity
	if total > maxQuantity {
		return fmt.Errorf("%w: quantity %d exceeds %d", ErrValidation, total, maxQuantity)
	}
	c.Items[i].Quantity = total
	if len(item.Metadata) > 0 {
		c.Items[i].Metadata = item.Metadata
	}
	return nil
}

// UpdateItem sets the quantity of a line. Zero removes it.
func (c *Cart) UpdateItem(key string, quantity, maxQuantity int64) error {
	if quantity < 0 || quantity > maxQuantity {
		return fmt.Errorf("%w: quantity must be between 0 and %d", ErrValidation, maxQuantity)
	}
	i := c.indexOf(key)
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity == 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
		return nil
	}
	c.Items[i].Quantity = quantity
	return nil
}

func (c *Cart) RemoveItem(key string) error {
	i := c.indexOf(key)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	return nil
}

func (c *Cart) ApplyCoupon(code string) {
	c.Coupon = &code
}

func (c *Cart) ClearCoupon() {
	c.Coupon = nil
}

func (c *Cart) MarkCheckedOut(orderID string) error {
	if err := c.EnsureActive(); err != nil {
		return err
	}
	c.Status = StatusCheckedOut
	c.CheckoutOrderID = &orderID
	return nil
}

// TotalQuantity sums the quantities of every line.
func (c *Cart) TotalQuantity() int64 {
	var n int64
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Clone returns a deep enough copy for read-modify-write.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]LineItem, len(c.Items))
	for i, it := range c.Items {
		it.SelectedOptions = maps.Clone(it.SelectedOptions)
		it.Metadata = maps.Clone(it.Metadata)
		out.Items[i] = it
	}
	if c.Pricing != nil {
		p := *c.Pricing
		p.Items = slices.Clone(p.Items)
		out.Pricing = &p
	}
	return &out
}
