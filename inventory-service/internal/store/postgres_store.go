package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
	"github.com/lib/pq"
)

const (
	OutboxTable          = "inventory_outbox"
	ProcessedEventsTable = "inventory_processed_events"
	MigrationsTable      = "inventory_schema_migrations"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (s *PostgresStore) GetStock(ctx context.Context, skus []string) ([]domain.StockLevel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sku, on_hand, reserved, updated_at FROM inventory_stock WHERE sku = ANY($1) ORDER BY sku`,
		pq.Array(skus))
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var out []domain.StockLevel
	for rows.Next() {
		var lvl domain.StockLevel
		if err := rows.Scan(&lvl.SKU, &lvl.OnHand, &lvl.Reserved, &lvl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		out = append(out, lvl)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetReservation(ctx context.Context, orderID string) (*domain.Reservation, error) {
	return scanReservation(s.db.QueryRowContext(ctx, selectReservation+` WHERE order_id = $1`, orderID))
}

func (s *PostgresStore) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id FROM inventory_reservations
		 WHERE status = 'reserved' AND expires_at IS NOT NULL AND expires_at <= $1
		 ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired reservations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
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

func (t *pgTx) LockStock(ctx context.Context, skus []string) (map[string]domain.StockLevel, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT sku, on_hand, reserved, updated_at FROM inventory_stock
		 WHERE sku = ANY($1) ORDER BY sku FOR UPDATE`, pq.Array(skus))
	if err != nil {
		return nil, fmt.Errorf("lock stock: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.StockLevel, len(skus))
	for rows.Next() {
		var lvl domain.StockLevel
		if err := rows.Scan(&lvl.SKU, &lvl.OnHand, &lvl.Reserved, &lvl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		out[lvl.SKU] = lvl
	}
	return out, rows.Err()
}

func (t *pgTx) SaveStock(ctx context.Context, levels ...domain.StockLevel) error {
	for _, lvl := range levels {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO inventory_stock (sku, on_hand, reserved, updated_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (sku) DO UPDATE SET on_hand = EXCLUDED.on_hand, reserved = EXCLUDED.reserved, updated_at = EXCLUDED.updated_at`,
			lvl.SKU, lvl.OnHand, lvl.Reserved, lvl.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save stock %s: %w", lvl.SKU, err)
		}
	}
	return nil
}

func (t *pgTx) GetReservation(ctx context.Context, orderID string) (*domain.Reservation, error) {
	return scanReservation(t.tx.QueryRowContext(ctx, selectReservation+` WHERE order_id = $1 FOR UPDATE`, orderID))
}

func (t *pgTx) InsertReservation(ctx context.Context, r *domain.Reservation) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("marshal reservation items: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO inventory_reservations (order_id, items, status, expires_at, deducted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.OrderID, items, r.Status, r.ExpiresAt, r.Deducted, r.CreatedAt, r.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicateReservation
	}
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateReservation(ctx context.Context, r *domain.Reservation) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE inventory_reservations SET status = $2, deducted = $3, updated_at = $4 WHERE order_id = $1`,
		r.OrderID, r.Status, r.Deducted, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	return nil
}

func (t *pgTx) Enqueue(ctx context.Context, env events.Envelope) error {
	return outbox.Enqueue(ctx, t.tx, OutboxTable, env)
}

const selectReservation = `SELECT order_id, items, status, expires_at, deducted, created_at, updated_at FROM inventory_reservations`

func scanReservation(row *sql.Row) (*domain.Reservation, error) {
	var (
		r         domain.Reservation
		items     []byte
		expiresAt sql.NullTime
	)
	err := row.Scan(&r.OrderID, &items, &r.Status, &expiresAt, &r.Deducted, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reservation: %w", err)
	}
	if err := json.Unmarshal(items, &r.Items); err != nil {
		return nil, fmt.Errorf("unmarshal reservation items: %w", err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		r.ExpiresAt = &t
	}
	return &r, nil
}
