package repository

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
)

var (
	ErrDuplicateShipment = errors.New("shipment for this order already exists")
	ErrAlreadyProcessed  = errors.New("event already processed")
)

type ShipmentRepository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetShipment(ctx context.Context, orderID string) (*domain.Shipment, error)
}

// Tx commits order rows, shipments, processed event ids and outbox rows together.
type Tx interface {
	ClaimEvent(ctx context.Context, eventID, eventType string) error
	// GetOrder returns domain.ErrOrderNotFound until OrderPlaced was recorded.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	// SaveOrder inserts or replaces the order row.
	SaveOrder(ctx context.Context, o *domain.Order) error
	// GetShipment locks and returns the shipment, or domain.ErrShipmentNotFound.
	GetShipment(ctx context.Context, orderID string) (*domain.Shipment, error)
	CreateShipment(ctx context.Context, s *domain.Shipment) error
	UpdateShipment(ctx context.Context, s *domain.Shipment) error
	Enqueue(ctx context.Context, env events.Envelope) error
}
