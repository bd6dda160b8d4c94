package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFlatFile creates a flat-file store, optionally seeded with content.
func createTestFlatFile(t *testing.T, content string) (*FlatFileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "IdsBD.txt")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("seed flat file: %v", err)
		}
	}
	s, err := OpenFlatFile(context.Background(), path, "windows-1251")
	if err != nil {
		t.Fatalf("OpenFlatFile() failed: %v", err)
	}
	return s, path
}

// backendsUnderTest returns one fresh instance of every local backend, plus
// Postgres when ANTIDUP_TEST_POSTGRES_DSN is set.
func backendsUnderTest(t *testing.T) map[string]Backend {
	t.Helper()
	flat, _ := createTestFlatFile(t, "")
	backends := map[string]Backend{
		"sqlite":   createTestStore(t),
		"flatfile": flat,
	}
	if pg := createTestPostgres(t); pg != nil {
		backends["postgres"] = pg
	}
	return backends
}

// createTestPostgres connects to the database named by
// ANTIDUP_TEST_POSTGRES_DSN and empties the table, or returns nil.
func createTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("ANTIDUP_TEST_POSTGRES_DSN")
	if dsn == "" {
		return nil
	}
	s, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres() failed: %v", err)
	}
	if _, err := s.db.Exec(`TRUNCATE seen_values`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// keys returns the sorted members of a set.
func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
