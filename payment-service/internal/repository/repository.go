package repository

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
)

var (
	ErrDuplicatePayment = errors.New("payment for this order already exists")
	ErrAlreadyProcessed = errors.New("event already processed")
)

type PaymentRepository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
}

// Tx commits payment rows, processed event ids and outbox rows together.
type Tx interface {
	ClaimEvent(ctx context.Context, eventID, eventType string) error
	// GetByOrderID locks and returns the payment, or domain.ErrPaymentNotFound.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	Create(ctx context.Context, p *domain.Payment) error
	Update(ctx context.Context, p *domain.Payment) error
	Enqueue(ctx context.Context, env events.Envelope) error
}
