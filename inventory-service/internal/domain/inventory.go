package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidItems        = errors.New("invalid items")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrStockBelowReserved  = errors.New("on-hand cannot drop below reserved quantity")
	ErrSKUNotFound         = errors.New("sku not found")
	// ErrCommitPending is returned for a hold that is still waiting for its commit.
	ErrCommitPending = errors.New("reservation not committed yet")
	// ErrNotCommitted is returned for a hold that was freed without ever being committed.
	ErrNotCommitted = errors.New("reservation was freed before commit")
)

// ReservationStatus represents the state of a stock reservation
type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "reserved"
	StatusCommitted ReservationStatus = "committed"
	StatusReleased  ReservationStatus = "released"
	StatusExpired   ReservationStatus = "expired"
)

// Failure reasons a caller can distinguish.
const (
	ReasonInvalidItems      = "INVALID_ITEMS"
	ReasonInsufficientStock = "INSUFFICIENT_STOCK"
)

type ReservationItem struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"qty"`
}

// Reservation is the hold placed for one order.
type Reservation struct {
	OrderID   string
	Items     []ReservationItem
	Status    ReservationStatus
	ExpiresAt *time.Time
	// Deducted is set once on-hand was physically decremented for a committed hold.
	Deducted  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired reports whether a still-reserved hold is past its expiry.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == StatusReserved && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// StockLevel holds the counters for one sku.
type StockLevel struct {
	SKU       string
	OnHand    int64
	Reserved  int64
	UpdatedAt time.Time
}

// Available returns the quantity that can still be reserved (on-hand - reserved)
func (s StockLevel) Available() int64 {
	return s.OnHand - s.Reserved
}

type ReserveStatus string

const (
	ReserveReserved  ReserveStatus = "reserved"
	ReserveDuplicate ReserveStatus = "duplicate"
	ReserveFailed    ReserveStatus = "failed"
)

type InsufficientItem struct {
	SKU       string `json:"sku"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

type ReserveResult struct {
	Status            ReserveStatus
	Items             []ReservationItem
	Reason            string
	InsufficientItems []InsufficientItem
	ExpiresAt         *time.Time
}

type MutationStatus string

const (
	MutationCommitted MutationStatus = "committed"
	MutationReleased  MutationStatus = "released"
	MutationExpired   MutationStatus = "expired"
	MutationDeducted  MutationStatus = "deducted"
	MutationNoop      MutationStatus = "noop"
	MutationDuplicate MutationStatus = "duplicate"
)

// Changed reports whether the mutation altered state.
func (s MutationStatus) Changed() bool {
	return s == MutationCommitted || s == MutationReleased || s == MutationExpired || s == MutationDeducted
}

// NormalizeItems validates a reservation request and merges repeated skus.
// The result is sorted by sku, which is also the row lock order.
func NormalizeItems(items []ReservationItem) ([]ReservationItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty item list", ErrInvalidItems)
	}
	merged := make(map[string]int64, len(items))
	for _, it := range items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" {
			return nil, fmt.Errorf("%w: blank sku", ErrInvalidItems)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %s must be positive", ErrInvalidItems, sku)
		}
		merged[sku] += it.Quantity
	}
	out := make([]ReservationItem, 0, len(merged))
	for sku, qty := range merged {
		out = append(out, ReservationItem{SKU: sku, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// SKUs returns the skus of already normalized items.
func SKUs(items []ReservationItem) []string {
	skus := make([]string, len(items))
	for i, it := range items {
		skus[i] = it.SKU
	}
	return skus
}

// Shortages lists every item the given levels cannot cover. A sku missing
// from levels counts as zero available.
func Shortages(levels map[string]StockLevel, items []ReservationItem) []InsufficientItem {
	var short []InsufficientItem
	for _, it := range items {
		available := int64(0)
		if lvl, ok := levels[it.SKU]; ok {
			available = max(lvl.Available(), 0)
		}
		if available < it.Quantity {
			short = append(short, InsufficientItem{SKU: it.SKU, Requested: it.Quantity, Available: available})
		}
	}
	return short
}

// Commit finalizes a reserved hold. Counters are untouched.
func (r *Reservation) Commit(now time.Time) MutationStatus {
	switch r.Status {
	case StatusReserved:
		r.Status = StatusCommitted
		r.UpdatedAt = now
		return MutationCommitted
	case StatusCommitted:
		return MutationDuplicate
	}
	return MutationNoop
}

// Release frees a reserved hold. The caller decrements reserved counters.
func (r *Reservation) Release(now time.Time) MutationStatus {
	switch r.Status {
	case StatusReserved:
		r.Status = StatusReleased
		r.UpdatedAt = now
		return MutationReleased
	case StatusReleased:
		return MutationDuplicate
	}
	return MutationNoop
}

// Expire releases a reserved hold whose expiry has passed.
func (r *Reservation) Expire(now time.Time) MutationStatus {
	switch {
	case r.IsExpired(now):
		r.Status = StatusExpired
		r.UpdatedAt = now
		return MutationExpired
	case r.Status == StatusExpired:
		return MutationDuplicate
	}
	return MutationNoop
}

// Deduct marks a committed hold as physically shipped. The caller decrements
// both on-hand and reserved.
func (r *Reservation) Deduct(now time.Time) (MutationStatus, error) {
	switch r.Status {
	case StatusCommitted:
	case StatusReserved:
		return MutationNoop, fmt.Errorf("%w: order %s", ErrCommitPending, r.OrderID)
	default:
		return MutationNoop, fmt.Errorf("%w: order %s is %s", ErrNotCommitted, r.OrderID, r.Status)
	}
	if r.Deducted {
		return MutationDuplicate, nil
	}
	r.Deducted = true
	r.UpdatedAt = now
	return MutationDeducted, nil
}

// Withdraw frees the hold of an order that will never ship, committed or not.
// A hold whose goods already left is kept. The caller decrements reserved.
func (r *Reservation) Withdraw(now time.Time) MutationStatus {
	switch {
	case r.Status == StatusReserved, r.Status == StatusCommitted && !r.Deducted:
		r.Status = StatusReleased
		r.UpdatedAt = now
		return MutationReleased
	case r.Status == StatusReleased, r.Status == StatusExpired:
		return MutationDuplicate
	}
	return MutationNoop
}
