package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/roach88/antidup/internal/store"
)

// ApplyEnv overlays ANTIDUP_* environment variables:
//   - ANTIDUP_STORE: store path or postgres DSN
//   - ANTIDUP_BACKEND: auto, sqlite, postgres or flatfile
//   - ANTIDUP_LEGACY: legacy flat-file snapshot path
//   - ANTIDUP_INPUT: input file path
//   - ANTIDUP_REPORT: report file path
//   - ANTIDUP_REPORT_PER_RUN: one report file per run (bool)
//   - ANTIDUP_LOG: log file path, empty disables the log file
//   - ANTIDUP_BATCH_SIZE: values per batch
//   - ANTIDUP_PROGRESS: show the progress bar (bool)
//   - ANTIDUP_FALLBACK_ENCODING: legacy encoding for non-UTF-8 files
//   - ANTIDUP_KEEP_INPUT: do not clear the input file (bool)
//   - ANTIDUP_LOCK_DIR: directory for the process lock
//
// Returns an error if any environment variable has an invalid value.
func (c *Config) ApplyEnv() error {
	parseEnvString("STORE", &c.StorePath)
	var backend string
	if parseEnvString("BACKEND", &backend) {
		c.Backend = store.Kind(backend)
	}
	parseEnvString("LEGACY", &c.LegacyPath)
	parseEnvString("INPUT", &c.InputPath)
	parseEnvString("REPORT", &c.ReportPath)
	parseEnvString("LOG", &c.LogPath)
	parseEnvString("FALLBACK_ENCODING", &c.FallbackEncoding)
	parseEnvString("LOCK_DIR", &c.LockDir)

	if err := parseEnvBool("REPORT_PER_RUN", &c.ReportPerRun); err != nil {
		return err
	}
	if err := parseEnvInt("BATCH_SIZE", &c.BatchSize); err != nil {
		return err
	}
	if err := parseEnvBool("PROGRESS", &c.Progress); err != nil {
		return err
	}
	if err := parseEnvBool("KEEP_INPUT", &c.KeepInput); err != nil {
		return err
	}
	return nil
}

// parseEnvString sets target when the variable is present, even if empty.
func parseEnvString(name string, target *string) bool {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if ok {
		*target = val
	}
	return ok
}

func parseEnvInt(name string, target *int) error {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
	}
	*target = n
	return nil
}

func parseEnvBool(name string, target *bool) error {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
	}
	*target = b
	return nil
}
