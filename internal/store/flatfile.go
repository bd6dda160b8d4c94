package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/antidup/internal/textio"
)

// FlatFileStore holds the whole seen set in memory and persists it as a
// sorted newline-delimited snapshot.
type FlatFileStore struct {
	path     string
	fallback string

	mu     sync.Mutex
	values map[string]struct{}
	dirty  bool
}

// Compile-time checks.
var (
	_ Backend = (*FlatFileStore)(nil)
	_ Loader  = (*FlatFileStore)(nil)
)

// OpenFlatFile loads the snapshot at path into memory. A missing file is an
// empty store.
func OpenFlatFile(ctx context.Context, path, fallback string) (*FlatFileStore, error) {
	s := &FlatFileStore{path: path, fallback: fallback}
	values, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.values = values
	slog.Debug("flat file store loaded", "path", path, "values", len(values))
	return s, nil
}

// Load reads the snapshot from disk. Lines are trimmed and empty lines
// dropped, so hand-edited snapshots load cleanly.
func (s *FlatFileStore) Load(_ context.Context) (map[string]struct{}, error) {
	lines, _, err := textio.ReadLines(s.path, s.fallback)
	if err != nil {
		return nil, fmt.Errorf("load flat file: %w", err)
	}

	values := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if v := strings.TrimSpace(line); v != "" {
			values[v] = struct{}{}
		}
	}
	return values, nil
}

func (s *FlatFileStore) Contains(_ context.Context, values []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string]struct{})
	for _, v := range values {
		if _, ok := s.values[v]; ok {
			found[v] = struct{}{}
		}
	}
	return found, nil
}

// InsertAll only changes memory. Nothing is durable until Persist.
func (s *FlatFileStore) InsertAll(_ context.Context, values []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, v := range values {
		if _, ok := s.values[v]; ok {
			continue
		}
		s.values[v] = struct{}{}
		inserted++
	}
	if inserted > 0 {
		s.dirty = true
	}
	return inserted, nil
}

func (s *FlatFileStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values), nil
}

// Persist rewrites the snapshot atomically: the sorted set is written to a
// temp file in the same directory, synced, then renamed over the snapshot.
// A crash at any point leaves either the old or the new snapshot, never a
// partial one.
func (s *FlatFileStore) Persist(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	sorted := make([]string, 0, len(s.values))
	for v := range s.values {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)

	if err := writeFileAtomic(s.path, sorted); err != nil {
		return fmt.Errorf("persist flat file: %w", err)
	}
	s.dirty = false
	slog.Debug("flat file store persisted", "path", s.path, "values", len(sorted))
	return nil
}

func (s *FlatFileStore) Close() error {
	return nil
}

// rename is replaced in tests to simulate a crash before the snapshot swap.
var rename = os.Rename

// writeFileAtomic writes lines to a temp file beside path and renames it
// into place.
func writeFileAtomic(path string, lines []string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err = w.WriteString(line); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		if err = w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Chmod(textio.DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. The snapshot is
// already in place at this point, so failures are logged, not returned.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		slog.Warn("directory sync skipped", "dir", dir, "error", err)
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, fs.ErrInvalid) {
		slog.Warn("directory sync failed", "dir", dir, "error", err)
	}
}
