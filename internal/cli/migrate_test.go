package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/antidup/internal/testutil"
)

func TestMigrate_ImportsLegacyStore(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "IdsBD.txt")
	testutil.WriteFile(t, legacy, "p\np\n q \n\n")

	out, err := runCLI(t, dir, "migrate", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   MigrateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Found)
	assert.Equal(t, 4, resp.Data.Lines)
	assert.Equal(t, 3, resp.Data.Values)
	assert.Equal(t, 2, resp.Data.Inserted)
	assert.Equal(t, 2, resp.Data.StoreSize)
	assert.FileExists(t, legacy+".bak")
	assert.NoFileExists(t, filepath.Join(dir, "input.txt"), "migrate does not touch input")
}

func TestMigrate_NothingToDo(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "No legacy store found. Total in store: 0\n", out)
}

func TestMigrate_NeverOverwritesBackup(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "IdsBD.txt")
	testutil.WriteFile(t, legacy+".bak", "old\n")
	testutil.WriteFile(t, legacy, "new\n")

	out, err := runCLI(t, dir, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, legacy+".bak.1")
	assert.Equal(t, "old\n", testutil.ReadFile(t, legacy+".bak"))
	assert.Equal(t, "new\n", testutil.ReadFile(t, legacy+".bak.1"))
}

func TestMigrate_RejectsFlatFileTarget(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "migrate", "--store", filepath.Join(dir, "seen.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "cannot migrate into a flatfile store")
}
