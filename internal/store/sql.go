package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// dialect captures the few differences between the SQL backends.
type dialect struct {
	name string

	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string

	// maxParams bounds the parameters in one statement.
	maxParams int

	insertSQL string
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	// SQLITE_MAX_VARIABLE_NUMBER defaults to 32766 since SQLite 3.32.
	maxParams: 32766,
	insertSQL: `INSERT INTO seen_values (value) VALUES (?) ON CONFLICT(value) DO NOTHING`,
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	maxParams:   65535,
	insertSQL:   `INSERT INTO seen_values (value) VALUES ($1) ON CONFLICT (value) DO NOTHING`,
}

// sqlStore implements Backend over database/sql for an indexed table.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

// Contains issues one bulk lookup per batch. Batches larger than the
// driver's parameter limit are split across several statements.
func (s *sqlStore) Contains(ctx context.Context, values []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})

	for start := 0; start < len(values); start += s.dialect.maxParams {
		end := min(start+s.dialect.maxParams, len(values))
		if err := s.containsChunk(ctx, values[start:end], found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (s *sqlStore) containsChunk(ctx context.Context, values []string, found map[string]struct{}) error {
	var b strings.Builder
	b.WriteString("SELECT value FROM seen_values WHERE value IN (")
	args := make([]any, len(values))
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.dialect.placeholder(i + 1))
		args[i] = v
	}
	b.WriteString(")")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return fmt.Errorf("contains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("contains: scan: %w", err)
		}
		found[v] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("contains: iterate: %w", err)
	}
	return nil
}

// InsertAll writes values in one transaction. Either every value of the call
// is committed or none is.
func (s *sqlStore) InsertAll(ctx context.Context, values []string) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert all: begin tx: %w: %w", ErrUnavailable, err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, s.dialect.insertSQL)
	if err != nil {
		return 0, fmt.Errorf("insert all: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, v := range values {
		result, err := stmt.ExecContext(ctx, v)
		if err != nil {
			return 0, fmt.Errorf("insert all: insert %q: %w", v, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert all: rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert all: commit: %w", err)
	}
	return inserted, nil
}

func (s *sqlStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_values`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Persist is a no-op: every InsertAll call already committed.
func (s *sqlStore) Persist(context.Context) error {
	return nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
