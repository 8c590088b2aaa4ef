package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
)

const (
	OutboxTable          = "orders_outbox"
	ProcessedEventsTable = "orders_processed_events"
	MigrationsTable      = "orders_schema_migrations"
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

const selectOrder = `SELECT id, status, currency, user_id, cart_id, idempotency_key, totals, snapshot,
	cancellation_reason, rejection_reason, insufficient_items, pending_cancellation, created_at, updated_at
	FROM orders`

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, id))
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
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

func (t *pgTx) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(t.tx.QueryRowContext(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) FindExisting(ctx context.Context, snapshotID, idempotencyKey string) (*domain.Order, error) {
	return scanOrder(t.tx.QueryRowContext(ctx,
		selectOrder+` WHERE snapshot_id = $1 OR ($2 <> '' AND idempotency_key = $2) LIMIT 1`,
		snapshotID, idempotencyKey))
}

func (t *pgTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	totals, snap, items, err := marshalOrder(order)
	if err != nil {
		return err
	}

	query := `INSERT INTO orders (id, status, currency, user_id, cart_id, snapshot_id, idempotency_key, totals, snapshot,
	          cancellation_reason, rejection_reason, insufficient_items, pending_cancellation, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, insertErr := t.tx.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.Currency,
		order.UserID,
		order.CartID,
		order.Snapshot.ID,
		order.IdempotencyKey,
		totals,
		snap,
		order.CancellationReason,
		order.RejectionReason,
		items,
		order.PendingCancellation,
		order.CreatedAt,
		order.UpdatedAt)

	if postgres.IsUniqueViolation(insertErr) {
		return ErrDuplicateOrder
	}
	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.InsufficientItems)
	if err != nil {
		return fmt.Errorf("failed to marshal insufficient items: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, cancellation_reason = $3, rejection_reason = $4,
		 insufficient_items = $5, pending_cancellation = $6, updated_at = $7 WHERE id = $1`,
		order.ID, order.Status, order.CancellationReason, order.RejectionReason, items,
		order.PendingCancellation, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (t *pgTx) Enqueue(ctx context.Context, env events.Envelope) error {
	return outbox.Enqueue(ctx, t.tx, OutboxTable, env)
}

func marshalOrder(order *domain.Order) (totals, snap, items []byte, err error) {
	if totals, err = json.Marshal(order.Totals); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal order totals: %w", err)
	}
	if snap, err = json.Marshal(order.Snapshot); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal order snapshot: %w", err)
	}
	if items, err = json.Marshal(order.InsufficientItems); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal insufficient items: %w", err)
	}
	return totals, snap, items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		order                domain.Order
		userID, key          sql.NullString
		cancelReason, reject sql.NullString
		pendingCancel        sql.NullString
		totals, snap, items  []byte
	)
	err := row.Scan(
		&order.ID,
		&order.Status,
		&order.Currency,
		&userID,
		&order.CartID,
		&key,
		&totals,
		&snap,
		&cancelReason,
		&reject,
		&items,
		&pendingCancel,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(totals, &order.Totals); err != nil {
		return nil, fmt.Errorf("unmarshal order totals: %w", err)
	}
	if err := json.Unmarshal(snap, &order.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal order snapshot: %w", err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.InsufficientItems); err != nil {
			return nil, fmt.Errorf("unmarshal insufficient items: %w", err)
		}
	}
	order.UserID = nullable(userID)
	order.IdempotencyKey = nullable(key)
	order.CancellationReason = nullable(cancelReason)
	order.RejectionReason = nullable(reject)
	order.PendingCancellation = nullable(pendingCancel)
	return &order, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
