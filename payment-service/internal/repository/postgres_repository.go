package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
)

const (
	OutboxTable          = "payments_outbox"
	ProcessedEventsTable = "payments_processed_events"
	MigrationsTable      = "payments_schema_migrations"
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

const selectPayment = `SELECT id, order_id, status, amount_cents, currency, failure_reason, created_at, updated_at
	FROM payments`

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, selectPayment+` WHERE order_id = $1`, orderID))
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

func (t *pgTx) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return scanPayment(t.tx.QueryRowContext(ctx, selectPayment+` WHERE order_id = $1 FOR UPDATE`, orderID))
}

func (t *pgTx) Create(ctx context.Context, p *domain.Payment) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, status, amount_cents, currency, failure_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.Status, p.AmountCents, p.Currency, p.FailureReason, p.CreatedAt, p.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicatePayment
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (t *pgTx) Update(ctx context.Context, p *domain.Payment) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE payments SET status = $2, failure_reason = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.Status, p.FailureReason, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

func (t *pgTx) Enqueue(ctx context.Context, env events.Envelope) error {
	return outbox.Enqueue(ctx, t.tx, OutboxTable, env)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (*domain.Payment, error) {
	var (
		p      domain.Payment
		amount sql.NullInt64
		reason sql.NullString
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Status, &amount, &p.Currency, &reason, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	if amount.Valid {
		p.AmountCents = &amount.Int64
	}
	if reason.Valid {
		p.FailureReason = &reason.String
	}
	return &p, nil
}
