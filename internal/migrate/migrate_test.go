package migrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/antidup/internal/store"
)

func openStore(t *testing.T, dir string) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(dir, "IdsBD.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeLegacy(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "IdsBD.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_NoLegacyFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)

	res, err := Run(context.Background(), s, Options{LegacyPath: filepath.Join(dir, "IdsBD.txt")})
	require.NoError(t, err)
	assert.False(t, res.Found)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_MigratesAndRetiresLegacyFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	legacy := writeLegacy(t, dir, "p\np\nq\n")

	res, err := Run(ctx, s, Options{LegacyPath: legacy, Fallback: "windows-1251"})
	require.NoError(t, err)

	assert.Equal(t, Result{Found: true, Lines: 3, Values: 3, Inserted: 2, BackupPath: legacy + ".bak"}, res)

	found, err := s.Contains(ctx, []string{"p", "q"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	n, _ := s.Count(ctx)
	assert.Equal(t, 2, n)

	assert.NoFileExists(t, legacy)
	assert.FileExists(t, legacy+".bak")

	// A second invocation sees no pending legacy file.
	again, err := Run(ctx, s, Options{LegacyPath: legacy})
	require.NoError(t, err)
	assert.False(t, again.Found)
	n, _ = s.Count(ctx)
	assert.Equal(t, 2, n)
}

func TestRun_RepointedAtBackupIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	legacy := writeLegacy(t, dir, "p\np\nq\n")

	_, err := Run(ctx, s, Options{LegacyPath: legacy})
	require.NoError(t, err)

	res, err := Run(ctx, s, Options{LegacyPath: legacy + ".bak"})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Zero(t, res.Inserted)

	n, _ := s.Count(ctx)
	assert.Equal(t, 2, n)
}

func TestRun_TrimsAndSkipsBlankLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	legacy := writeLegacy(t, dir, "  a  \r\n\r\n\tb\n   \n")

	res, err := Run(ctx, s, Options{LegacyPath: legacy})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Lines)
	assert.Equal(t, 2, res.Values)

	found, err := s.Contains(ctx, []string{"a", "b", "  a  "})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestRun_LegacyEncoding(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	// "да" in Windows-1251.
	legacy := writeLegacy(t, dir, string([]byte{0xE4, 0xE0, '\n'}))

	_, err := Run(ctx, s, Options{LegacyPath: legacy, Fallback: "windows-1251"})
	require.NoError(t, err)

	found, err := s.Contains(ctx, []string{"да"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestRun_SmallBatches(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rec := &recordingInserter{}
	legacy := writeLegacy(t, dir, "a\nb\nc\nd\ne\n")

	res, err := Run(ctx, rec, Options{LegacyPath: legacy, BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Inserted)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, rec.calls)
}

func TestRun_InsertFailureKeepsLegacyFile(t *testing.T) {
	dir := t.TempDir()
	legacy := writeLegacy(t, dir, "a\nb\n")
	boom := errors.New("disk full")

	_, err := Run(context.Background(), &recordingInserter{err: boom}, Options{LegacyPath: legacy})
	require.ErrorIs(t, err, boom)

	assert.FileExists(t, legacy)
	assert.NoFileExists(t, legacy+".bak")
}

func TestRun_NeverOverwritesEarlierBackup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	legacy := writeLegacy(t, dir, "new\n")
	require.NoError(t, os.WriteFile(legacy+".bak", []byte("old\n"), 0644))

	res, err := Run(ctx, s, Options{LegacyPath: legacy})
	require.NoError(t, err)
	assert.Equal(t, legacy+".bak.1", res.BackupPath)

	old, err := os.ReadFile(legacy + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(old))
}

func TestPending(t *testing.T) {
	dir := t.TempDir()
	ok, err := Pending(filepath.Join(dir, "IdsBD.txt"))
	require.NoError(t, err)
	assert.False(t, ok)

	legacy := writeLegacy(t, dir, "x\n")
	ok, err = Pending(legacy)
	require.NoError(t, err)
	assert.True(t, ok)
}

type recordingInserter struct {
	calls [][]string
	err   error
}

func (r *recordingInserter) InsertAll(_ context.Context, values []string) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.calls = append(r.calls, append([]string(nil), values...))
	return len(values), nil
}
