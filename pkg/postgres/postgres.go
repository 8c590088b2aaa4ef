package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

// ErrAlreadyProcessed is returned by ClaimEvent when the event id was applied before.
var ErrAlreadyProcessed = errors.New("event already processed")

type Credentials struct {
	Host              string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port              int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User              string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password          string `yaml:"password" env:"DB_PASSWORD" env-default:"postgres"`
	DBName            string `yaml:"dbname" env:"DB_NAME" env-default:"ecommerce"`
	MigrationsDirPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

func (c Credentials) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

// Open connects and pings. Pool limits follow the services' defaults.
func Open(ctx context.Context, cred Credentials) (*sql.DB, error) {
	db, err := sql.Open("postgres", cred.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return db, nil
}

// RunMigrations applies every pending migration from dir. Each service keeps its
// own migrations table so several services can share one database.
func RunMigrations(db *sql.DB, dir, table string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: table,
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction, committing on nil and rolling back otherwise.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ClaimEvent records eventID in the given processed-events table inside tx.
// A second claim of the same id returns ErrAlreadyProcessed and leaves tx usable.
func ClaimEvent(ctx context.Context, tx *sql.Tx, table, eventID, eventType string) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (event_id, event_type, processed_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (event_id) DO NOTHING`, pq.QuoteIdentifier(table))

	res, err := tx.ExecContext(ctx, query, eventID, eventType)
	if err != nil {
		return fmt.Errorf("claim event %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim event %s: %w", eventID, err)
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}
