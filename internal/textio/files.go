// Package textio reads and writes the newline-delimited text files antidup
// works with: the input queue, the per-run report, and legacy snapshots.
package textio

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFilePermissions is used for every file antidup creates.
const DefaultFilePermissions = 0644

// ReadLines reads and decodes a text file and returns its lines.
// A missing file has no lines.
func ReadLines(path, fallback string) ([]string, Encoding, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, EncodingUTF8, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}

	text, enc, err := Decode(data, fallback)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if enc != EncodingUTF8 {
		slog.Warn("file decoded with fallback encoding", "path", path, "encoding", enc)
	}
	return SplitLines(text), enc, nil
}

// Touch creates an empty file at path if nothing exists there yet.
func Touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	return f.Close()
}

// Truncate empties the file at path. It must only be called once the values
// read from it are durably stored.
func Truncate(path string) error {
	if err := os.Truncate(path, 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("truncate %s: %w", path, err)
	}
	return nil
}

// AppendLines appends lines to path in a single write, each followed by a
// newline, and syncs the file. Nothing is written for an empty slice.
func AppendLines(path string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}

	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("append %s: sync: %w", path, err)
	}
	return f.Close()
}

// RunReportPath derives a per-run report path from a base path:
// "out/GoodId.txt" becomes "out/GoodId-20260102T150405Z-<runID>.txt".
func RunReportPath(base string, at time.Time, runID string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s-%s%s", stem, at.UTC().Format("20060102T150405Z"), runID, ext)
}
