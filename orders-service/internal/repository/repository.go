package repository

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
)

var (
	ErrDuplicateOrder   = errors.New("order for this snapshot already exists")
	ErrAlreadyProcessed = errors.New("event already processed")
)

// OrderRepository is the orders persistence boundary. Writes happen inside InTx.
type OrderRepository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	// ListOrdersByUserID returns the user's orders, newest first.
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

// Tx commits order rows, processed event ids and outbox rows together.
type Tx interface {
	ClaimEvent(ctx context.Context, eventID, eventType string) error
	// GetOrderByID locks and returns the order, or domain.ErrOrderNotFound.
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	// FindExisting returns the order created from snapshotID or with
	// idempotencyKey (when not empty), or domain.ErrOrderNotFound.
	FindExisting(ctx context.Context, snapshotID, idempotencyKey string) (*domain.Order, error)
	CreateOrder(ctx context.Context, order *domain.Order) error
	UpdateOrder(ctx context.Context, order *domain.Order) error
	Enqueue(ctx context.Context, env events.Envelope) error
}
