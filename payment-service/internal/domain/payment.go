package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrIllegalTransition = errors.New("illegal payment transition")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

// ReasonAmountUnknown fails payments whose order could not be priced.
const ReasonAmountUnknown = "AMOUNT_UNKNOWN"

type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`
	Status  Status `json:"status"`
	// AmountCents is nil when the order total was unknown at checkout.
	AmountCents   *int64    `json:"amountCents"`
	Currency      string    `json:"currency"`
	FailureReason *string   `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewIntent creates the pending payment for an order.
func NewIntent(orderID string, amountCents *int64, currency string, now time.Time) *Payment {
	return &Payment{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Status:      StatusPending,
		AmountCents: amountCents,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Payment) Authorize(now time.Time) (bool, error) {
	switch p.Status {
	case StatusPending:
		p.Status = StatusAuthorized
		p.UpdatedAt = now
		return true, nil
	case StatusAuthorized:
		return false, nil
	}
	return false, p.illegal(StatusAuthorized)
}

func (p *Payment) Fail(reason string, now time.Time) (bool, error) {
	switch p.Status {
	case StatusPending:
		p.Status = StatusFailed
		p.FailureReason = &reason
		p.UpdatedAt = now
		return true, nil
	case StatusFailed:
		return false, nil
	}
	return false, p.illegal(StatusFailed)
}

// Capture settles an authorized payment. Capturing twice is a no-op.
func (p *Payment) Capture(now time.Time) (bool, error) {
	switch p.Status {
	case StatusAuthorized:
		p.Status = StatusCaptured
		p.UpdatedAt = now
		return true, nil
	case StatusCaptured:
		return false, nil
	}
	return false, p.illegal(StatusCaptured)
}

// Decided reports whether authorization already ran.
func (p *Payment) Decided() bool {
	return p.Status != StatusPending
}

func (p *Payment) illegal(to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.Status, to)
}
