package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
)

const (
	OutboxTable          = "fulfillment_outbox"
	ProcessedEventsTable = "fulfillment_processed_events"
	MigrationsTable      = "fulfillment_schema_migrations"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

const selectShipment = `SELECT id, order_id, status, items, cancel_reason, created_at, updated_at FROM shipments`

func (r *Repository) GetShipment(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return scanShipment(r.db.QueryRowContext(ctx, selectShipment+` WHERE order_id = $1`, orderID))
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) ClaimEvent(ctx context.Context, eventID, eventType string) error {
	err := postgres.ClaimEvent(ctx, t.tx, ProcessedEventsTable, eventID, eventType)
	if errors.Is(err, postgres.ErrAlreadyProcessed) {
		return ErrAlreadyProcessed
	}
	return err
}

func (t *pgTx) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var (
		o        domain.Order
		items    []byte
		canceled sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT order_id, items, canceled_at FROM fulfillment_orders WHERE order_id = $1 FOR UPDATE`, orderID).
		Scan(&o.OrderID, &items, &canceled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if canceled.Valid {
		o.CanceledAt = &canceled.Time
	}
	return &o, nil
}

func (t *pgTx) SaveOrder(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO fulfillment_orders (order_id, items, canceled_at) VALUES ($1, $2, $3)
		 ON CONFLICT (order_id) DO UPDATE SET items = EXCLUDED.items, canceled_at = EXCLUDED.canceled_at`,
		o.OrderID, items, o.CanceledAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func (t *pgTx) GetShipment(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return scanShipment(t.tx.QueryRowContext(ctx, selectShipment+` WHERE order_id = $1 FOR UPDATE`, orderID))
}

func (t *pgTx) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return fmt.Errorf("marshal shipment items: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO shipments (id, order_id, status, items, cancel_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.OrderID, s.Status, items, s.CancelReason, s.CreatedAt, s.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicateShipment
	}
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateShipment(ctx context.Context, s *domain.Shipment) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE shipments SET status = $2, cancel_reason = $3, updated_at = $4 WHERE id = $1`,
		s.ID, s.Status, s.CancelReason, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	return nil
}

func (t *pgTx) Enqueue(ctx context.Context, env events.Envelope) error {
	return outbox.Enqueue(ctx, t.tx, OutboxTable, env)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShipment(row scanner) (*domain.Shipment, error) {
	var (
		s      domain.Shipment
		items  []byte
		reason sql.NullString
	)
	err := row.Scan(&s.ID, &s.OrderID, &s.Status, &items, &reason, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan shipment: %w", err)
	}
	if err := json.Unmarshal(items, &s.Items); err != nil {
		return nil, fmt.Errorf("unmarshal shipment items: %w", err)
	}
	if reason.Valid {
		s.CancelReason = &reason.String
	}
	return &s, nil
}
