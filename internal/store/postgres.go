package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS seen_values (value TEXT PRIMARY KEY)`

// PostgresStore keeps the seen set in a Postgres table.
type PostgresStore struct {
	sqlStore
}

// Compile-time check that PostgresStore implements Backend.
var _ Backend = (*PostgresStore)(nil)

// OpenPostgres connects to the database at dsn and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	slog.Debug("opening postgres store")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w: %w", ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open postgres: %w: %w", ErrUnavailable, err)
	}

	// One writer keeps InsertAll calls serialized like the SQLite backend.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open postgres: apply schema: %w", err)
	}
	slog.Debug("postgres store ready")

	return &PostgresStore{sqlStore{db: db, dialect: postgresDialect}}, nil
}
