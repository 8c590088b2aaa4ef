package store

import (
	"context"
	"errors"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
)

// Common errors returned by the store
var (
	ErrDuplicateReservation = errors.New("reservation for this order already exists")
	ErrAlreadyProcessed     = errors.New("event already processed")
)

// Store is the inventory persistence boundary. Every write happens inside InTx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// GetStock returns levels for the given skus; unknown skus are omitted.
	GetStock(ctx context.Context, skus []string) ([]domain.StockLevel, error)
	GetReservation(ctx context.Context, orderID string) (*domain.Reservation, error)
	// ExpiredReservations returns order ids of reserved holds due at now, oldest expiry first.
	ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// Tx is one atomic unit: stock counters, reservation rows, processed event ids
// and outbox rows commit together or not at all.
type Tx interface {
	// ClaimEvent records an inbound event id; ErrAlreadyProcessed if seen before.
	ClaimEvent(ctx context.Context, eventID, eventType string) error
	// LockStock locks the rows of skus in the given order and returns the ones that exist.
	LockStock(ctx context.Context, skus []string) (map[string]domain.StockLevel, error)
	SaveStock(ctx context.Context, levels ...domain.StockLevel) error
	// GetReservation locks and returns the reservation, or ErrReservationNotFound.
	GetReservation(ctx context.Context, orderID string) (*domain.Reservation, error)
	InsertReservation(ctx context.Context, r *domain.Reservation) error
	UpdateReservation(ctx context.Context, r *domain.Reservation) error
	Enqueue(ctx context.Context, env events.Envelope) error
}
