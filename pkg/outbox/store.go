package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
	"github.com/lib/pq"
)

type Store interface {
	FetchPending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, id string) error
	MarkAttemptFailed(ctx context.Context, id, cause string, maxAttempts int) error
}

// Purger deletes published rows. Stores that implement it get archived by a
// publisher configured WithRetention.
type Purger interface {
	PurgePublished(ctx context.Context, olderThan time.Time) (int64, error)
}

// ClaimLease is how long a fetched row is hidden from other publishers.
const ClaimLease = 30 * time.Second

// Enqueue inserts env into table as part of the caller's transaction.
func Enqueue(ctx context.Context, tx *sql.Tx, table string, env events.Envelope) error {
	ev, err := FromEnvelope(env)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s
		(id, topic, event_type, aggregate_id, aggregate_type, correlation_id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)`, pq.QuoteIdentifier(table))

	_, err = tx.ExecContext(ctx, query,
		ev.ID, ev.Topic, ev.EventType, ev.AggregateID, ev.AggregateType,
		ev.CorrelationID, ev.Payload, ev.Status, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event %s: %w", ev.EventType, err)
	}
	return nil
}

type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

// FetchPending claims up to limit pending rows, oldest first. Claimed rows are
// leased for ClaimLease so concurrent publishers skip them.
func (s *PostgresStore) FetchPending(ctx context.Context, limit int) ([]Event, error) {
	query := fmt.Sprintf(`UPDATE %[1]s SET locked_until = NOW() + $2::interval
		WHERE id IN (
			SELECT id FROM %[1]s
			WHERE status = 'pending' AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, topic, event_type, aggregate_id, aggregate_type, correlation_id, payload,
			status, attempts, last_error, created_at, updated_at, published_at`, s.table)

	rows, err := s.db.QueryContext(ctx, query, limit, fmt.Sprintf("%d seconds", int(ClaimLease.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev          Event
			lastError   sql.NullString
			publishedAt sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.EventType, &ev.AggregateID, &ev.AggregateType,
			&ev.CorrelationID, &ev.Payload, &ev.Status, &ev.Attempts, &lastError,
			&ev.CreatedAt, &ev.UpdatedAt, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if lastError.Valid {
			ev.LastError = &lastError.String
		}
		if publishedAt.Valid {
			ev.PublishedAt = &publishedAt.Time
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// RETURNING does not keep the subquery order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = 'published', published_at = NOW(), updated_at = NOW(), locked_until = NULL
		WHERE id = $1 AND status = 'pending'`, s.table)
	return s.expectOne(ctx, query, id)
}

func (s *PostgresStore) MarkAttemptFailed(ctx context.Context, id, cause string, maxAttempts int) error {
	query := fmt.Sprintf(`UPDATE %s SET
			attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN $3 > 0 AND attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			updated_at = NOW(),
			locked_until = NULL
		WHERE id = $1 AND status = 'pending'`, s.table)
	return s.expectOne(ctx, query, id, cause, maxAttempts)
}

// Requeue gives a failed row another round of delivery attempts.
func (s *PostgresStore) Requeue(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = 'pending', attempts = 0, updated_at = NOW()
		WHERE id = $1 AND status = 'failed'`, s.table)
	return s.expectOne(ctx, query, id)
}

// PurgePublished deletes published rows older than the cutoff.
func (s *PostgresStore) PurgePublished(ctx context.Context, olderThan time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE status = 'published' AND published_at < $1`, s.table)
	res, err := s.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return res.RowsAffected()
}

// Get reads one row regardless of status.
func (s *PostgresStore) Get(ctx context.Context, id string) (Event, error) {
	query := fmt.Sprintf(`SELECT id, topic, event_type, aggregate_id, aggregate_type, correlation_id, payload,
		status, attempts, last_error, created_at, updated_at, published_at FROM %s WHERE id = $1`, s.table)

	var (
		ev          Event
		lastError   sql.NullString
		publishedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&ev.ID, &ev.Topic, &ev.EventType, &ev.AggregateID,
		&ev.AggregateType, &ev.CorrelationID, &ev.Payload, &ev.Status, &ev.Attempts, &lastError,
		&ev.CreatedAt, &ev.UpdatedAt, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("get outbox event %s: %w", id, err)
	}
	if lastError.Valid {
		ev.LastError = &lastError.String
	}
	if publishedAt.Valid {
		ev.PublishedAt = &publishedAt.Time
	}
	return ev, nil
}

func (s *PostgresStore) expectOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outbox event: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
