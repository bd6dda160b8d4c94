// Package migrate moves a legacy flat-file snapshot into an indexed store.
//
// The migration is idempotent: values are inserted with insert-or-ignore
// semantics, and the legacy file is renamed out of the way only after every
// insert has committed. A failed migration leaves the legacy file in place so
// the next invocation retries it.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/antidup/internal/store"
	"github.com/roach88/antidup/internal/textio"
)

// DefaultBatchSize bounds the values inserted per transaction.
const DefaultBatchSize = 1000

// Inserter is the part of store.Backend a migration writes through.
type Inserter interface {
	InsertAll(ctx context.Context, values []string) (int, error)
}

// Options configures a migration.
type Options struct {
	LegacyPath string
	BatchSize  int
	Fallback   string
}

// Result describes what a migration did.
type Result struct {
	Found      bool   `json:"found"`
	Lines      int    `json:"lines"`
	Values     int    `json:"values"`
	Inserted   int    `json:"inserted"`
	BackupPath string `json:"backup_path,omitempty"`
}

// Pending reports whether a legacy file is waiting to be migrated.
func Pending(legacyPath string) (bool, error) {
	_, err := os.Stat(legacyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat legacy file: %w", err)
	}
	return true, nil
}

// Run migrates the legacy file at opts.LegacyPath into dst. It is a no-op
// when no legacy file exists.
func Run(ctx context.Context, dst Inserter, opts Options) (Result, error) {
	var res Result

	pending, err := Pending(opts.LegacyPath)
	if err != nil {
		return res, fmt.Errorf("migrate: %w", err)
	}
	if !pending {
		slog.Debug("no legacy store to migrate", "path", opts.LegacyPath)
		return res, nil
	}
	res.Found = true

	lines, enc, err := textio.ReadLines(opts.LegacyPath, opts.Fallback)
	if err != nil {
		return res, fmt.Errorf("migrate: %w", err)
	}
	res.Lines = len(lines)

	values := make([]string, 0, len(lines))
	for _, line := range lines {
		if v := strings.TrimSpace(line); v != "" {
			values = append(values, v)
		}
	}
	res.Values = len(values)

	slog.Info("migrating legacy store",
		"path", opts.LegacyPath,
		"encoding", enc,
		"lines", res.Lines,
		"values", res.Values,
	)

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for start := 0; start < len(values); start += batchSize {
		end := min(start+batchSize, len(values))
		n, err := dst.InsertAll(ctx, values[start:end])
		if err != nil {
			return res, fmt.Errorf("migrate: insert values %d-%d: %w", start, end, err)
		}
		res.Inserted += n
	}

	backup, err := nextBackupPath(opts.LegacyPath)
	if err != nil {
		return res, fmt.Errorf("migrate: %w", err)
	}
	if err := os.Rename(opts.LegacyPath, backup); err != nil {
		return res, fmt.Errorf("migrate: retire legacy file: %w", err)
	}
	res.BackupPath = backup

	slog.Info("legacy store migrated",
		"inserted", res.Inserted,
		"already_present", res.Values-res.Inserted,
		"backup", backup,
	)
	return res, nil
}

// nextBackupPath returns "<path>.bak", or "<path>.bak.N" for the first N not
// yet taken, so an earlier backup is never overwritten.
func nextBackupPath(path string) (string, error) {
	candidate := path + store.BackupSuffix
	for i := 1; ; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat backup %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s%s.%d", path, store.BackupSuffix, i)
	}
}
