package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnavailable wraps failures to open the store or begin a transaction.
// Nothing has been mutated when it is returned, so the run can be repeated.
var ErrUnavailable = errors.New("store unavailable")

// Backend is the contract every store implementation satisfies.
type Backend interface {
	// Contains returns the subset of values already present. It never
	// mutates the store.
	Contains(ctx context.Context, values []string) (map[string]struct{}, error)

	// InsertAll adds values not already present and ignores the rest.
	// It returns how many values were newly inserted.
	InsertAll(ctx context.Context, values []string) (int, error)

	// Count returns the number of distinct values stored.
	Count(ctx context.Context) (int, error)

	// Persist makes every accepted value durable. Indexed backends commit
	// per InsertAll and treat this as a no-op.
	Persist(ctx context.Context) error

	Close() error
}

// Loader is implemented by backends that hold the whole set in memory.
type Loader interface {
	Load(ctx context.Context) (map[string]struct{}, error)
}

// Kind selects a backend implementation.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindFlatFile Kind = "flatfile"
)

// Kinds lists the accepted backend names.
var Kinds = []Kind{KindAuto, KindSQLite, KindPostgres, KindFlatFile}

// BackupSuffix marks a flat file retired by migration.
const BackupSuffix = ".bak"

// Options configures Open.
type Options struct {
	// Location is a file path (sqlite, flatfile) or a postgres:// DSN.
	Location string
	Kind     Kind

	// Fallback names the legacy encoding used when a flat file is not UTF-8.
	Fallback string
}

// Indexed reports whether kind is an indexed (migration target) backend.
func (k Kind) Indexed() bool {
	return k == KindSQLite || k == KindPostgres
}

// Resolve turns KindAuto into a concrete kind based on the location.
func Resolve(kind Kind, location string) Kind {
	if kind != KindAuto && kind != "" {
		return kind
	}
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return KindPostgres
	case strings.EqualFold(filepath.Ext(location), ".txt"):
		return KindFlatFile
	default:
		return KindSQLite
	}
}

// Open creates or opens the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("open store: %w: location not set", ErrUnavailable)
	}

	switch kind := Resolve(opts.Kind, opts.Location); kind {
	case KindSQLite:
		return OpenSQLite(ctx, opts.Location)
	case KindPostgres:
		return OpenPostgres(ctx, opts.Location)
	case KindFlatFile:
		if retired(opts.Location) {
			return nil, fmt.Errorf("open store: flat file %s was migrated to an indexed store (%s exists)",
				opts.Location, opts.Location+BackupSuffix)
		}
		return OpenFlatFile(ctx, opts.Location, opts.Fallback)
	default:
		return nil, fmt.Errorf("open store: unknown backend %q: must be one of %v", kind, Kinds)
	}
}

// retired reports whether a migration has already renamed the flat file at
// path to its backup name.
func retired(path string) bool {
	_, err := os.Stat(path + BackupSuffix)
	return !errors.Is(err, fs.ErrNotExist)
}
