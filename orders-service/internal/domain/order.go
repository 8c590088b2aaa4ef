package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"github.com/google/uuid"
)

var (
	ErrIllegalTransition = errors.New("illegal order transition")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidSnapshot   = errors.New("invalid cart snapshot")
)

type OrderStatus string

const (
	OrderStatusPendingInventory OrderStatus = "pending_inventory"
	OrderStatusConfirmed        OrderStatus = "confirmed"
	OrderStatusRejected         OrderStatus = "rejected"
	OrderStatusCanceled         OrderStatus = "canceled"
)

type InsufficientItem struct {
	SKU       string `json:"sku"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

type Order struct {
	ID             string
	Status         OrderStatus
	Currency       string
	UserID         *string
	CartID         string
	IdempotencyKey *string
	Totals         snapshot.Totals
	// Snapshot is stored verbatim, signature included.
	Snapshot           snapshot.Snapshot
	CancellationReason *string
	RejectionReason    *string
	InsufficientItems  []InsufficientItem
	// PendingCancellation holds a payment failure that arrived before the
	// reservation outcome. It is applied right after the order is confirmed.
	PendingCancellation *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewOrder creates a pending order from a verified snapshot.
func NewOrder(s snapshot.Snapshot, idempotencyKey string, now time.Time) *Order {
	o := &Order{
		ID:        uuid.NewString(),
		Status:    OrderStatusPendingInventory,
		Currency:  s.Currency,
		UserID:    s.UserID,
		CartID:    s.CartID,
		Totals:    s.Totals,
		Snapshot:  s,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if idempotencyKey != "" {
		o.IdempotencyKey = &idempotencyKey
	}
	return o
}

// Items returns the reservation lines for the order, merged by sku.
func (o *Order) Items() []events.Item {
	var out []events.Item
	index := make(map[string]int)
	for _, it := range o.Snapshot.Items {
		if i, ok := index[it.SKU]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.SKU] = len(out)
		out = append(out, events.Item{SKU: it.SKU, Quantity: it.Quantity})
	}
	return out
}

// IsTerminal reports whether no further transition is possible.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusRejected || o.Status == OrderStatusCanceled
}

// Confirm moves a pending order to confirmed. Confirming a confirmed order is a no-op.
func (o *Order) Confirm(now time.Time) (bool, error) {
	switch o.Status {
	case OrderStatusPendingInventory:
		o.Status = OrderStatusConfirmed
		o.UpdatedAt = now
		return true, nil
	case OrderStatusConfirmed:
		return false, nil
	}
	return false, o.illegal(OrderStatusConfirmed)
}

// Reject moves a pending order to rejected with the reservation failure.
func (o *Order) Reject(reason string, items []InsufficientItem, now time.Time) (bool, error) {
	switch o.Status {
	case OrderStatusPendingInventory:
		o.Status = OrderStatusRejected
		o.RejectionReason = &reason
		o.InsufficientItems = items
		o.UpdatedAt = now
		return true, nil
	case OrderStatusRejected:
		return false, nil
	}
	return false, o.illegal(OrderStatusRejected)
}

// Cancel moves a confirmed order to canceled.
func (o *Order) Cancel(reason string, now time.Time) (bool, error) {
	switch o.Status {
	case OrderStatusConfirmed:
		o.Status = OrderStatusCanceled
		o.CancellationReason = &reason
		o.PendingCancellation = nil
		o.UpdatedAt = now
		return true, nil
	case OrderStatusCanceled:
		return false, nil
	}
	return false, o.illegal(OrderStatusCanceled)
}

// DeferCancellation remembers a cancellation for a pending order. It reports
// false when the order is not pending or one is already recorded.
func (o *Order) DeferCancellation(reason string, now time.Time) bool {
	if o.Status != OrderStatusPendingInventory || o.PendingCancellation != nil {
		return false
	}
	o.PendingCancellation = &reason
	o.UpdatedAt = now
	return true
}

func (o *Order) illegal(to OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, to)
}
