package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrShipmentNotFound  = errors.New("shipment not found")
	ErrOrderNotFound     = errors.New("order not known to fulfillment")
	ErrIllegalTransition = errors.New("illegal shipment transition")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusDispatched Status = "dispatched"
	StatusCanceled   Status = "canceled"
)

type Item struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"qty"`
}

// Order is what fulfillment remembers of an order between placement and
// payment capture.
type Order struct {
	OrderID    string
	Items      []Item
	CanceledAt *time.Time
}

type Shipment struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"orderId"`
	Status       Status    `json:"status"`
	Items        []Item    `json:"items"`
	CancelReason *string   `json:"cancelReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewShipment(o Order, now time.Time) *Shipment {
	return &Shipment{
		ID:        uuid.NewString(),
		OrderID:   o.OrderID,
		Status:    StatusPending,
		Items:     o.Items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Dispatch hands a pending shipment to the carrier. Dispatching twice is a no-op.
func (s *Shipment) Dispatch(now time.Time) (bool, error) {
	switch s.Status {
	case StatusPending:
		s.Status = StatusDispatched
		s.UpdatedAt = now
		return true, nil
	case StatusDispatched:
		return false, nil
	}
	return false, s.illegal(StatusDispatched)
}

// Cancel stops a pending shipment. Dispatched shipments cannot be recalled.
func (s *Shipment) Cancel(reason string, now time.Time) (bool, error) {
	switch s.Status {
	case StatusPending:
		s.Status = StatusCanceled
		s.CancelReason = &reason
		s.UpdatedAt = now
		return true, nil
	case StatusCanceled:
		return false, nil
	}
	return false, s.illegal(StatusCanceled)
}

func (s *Shipment) illegal(to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Status, to)
}
