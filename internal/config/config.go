// Package config holds antidup's configuration.
//
// Settings are layered, lowest precedence first: built-in defaults, a YAML
// file, a .env file, ANTIDUP_* environment variables, and finally command
// line flags (applied by the cli package).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/antidup/internal/store"
	"github.com/roach88/antidup/internal/textio"
)

// Default file names, matching the layout of the original flat-file tool.
const (
	DefaultStorePath  = "IdsBD.sqlite"
	DefaultLegacyPath = "IdsBD.txt"
	DefaultInputPath  = "input.txt"
	DefaultReportPath = "GoodId.txt"
	DefaultLogPath    = "antidup.log"
	DefaultConfigFile = "antidup.yaml"
	DefaultDotEnvFile = ".env"
	DefaultBatchSize  = 1000
	MaxBatchSize      = 100000
	EnvPrefix         = "ANTIDUP_"
)

// Config is the explicit configuration passed to the store and deduplicator.
type Config struct {
	// StorePath is the live store: a file path or a postgres:// DSN.
	StorePath string `yaml:"store"`

	// Backend is one of auto, sqlite, postgres, flatfile.
	Backend store.Kind `yaml:"backend"`

	// LegacyPath is the flat-file snapshot migrated into indexed stores.
	LegacyPath string `yaml:"legacy"`

	InputPath  string `yaml:"input"`
	ReportPath string `yaml:"report"`

	// ReportPerRun writes each run's report to its own file derived from
	// ReportPath instead of appending to ReportPath.
	ReportPerRun bool `yaml:"report_per_run"`

	LogPath string `yaml:"log"`

	BatchSize int  `yaml:"batch_size"`
	Progress  bool `yaml:"progress"`

	// FallbackEncoding decodes files that are not valid UTF-8.
	FallbackEncoding string `yaml:"fallback_encoding"`

	// KeepInput leaves the input file untouched after a successful run.
	KeepInput bool `yaml:"keep_input"`

	// LockDir holds the single-process lock. Empty means the store's directory.
	LockDir string `yaml:"lock_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StorePath:        DefaultStorePath,
		Backend:          store.KindAuto,
		LegacyPath:       DefaultLegacyPath,
		InputPath:        DefaultInputPath,
		ReportPath:       DefaultReportPath,
		LogPath:          DefaultLogPath,
		BatchSize:        DefaultBatchSize,
		Progress:         true,
		FallbackEncoding: textio.DefaultFallback,
	}
}

// LoadOptions says where Load looks for configuration.
type LoadOptions struct {
	// File is a YAML config path. When Explicit is false a missing file is
	// ignored.
	File     string
	Explicit bool

	// DotEnv is a .env path; a missing file is ignored.
	DotEnv string
}

// Load builds a Config from defaults, the YAML file, the .env file and the
// environment. It does not validate: callers layer flags on top and call
// Validate once on the final result.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.loadFile(opts.File, opts.Explicit); err != nil {
			return cfg, err
		}
	}

	if opts.DotEnv != "" {
		if err := loadDotEnv(opts.DotEnv); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadDotEnv exports the variables of a .env file. Variables already set in
// the environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration has valid values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StorePath) == "" {
		return errors.New("store path must not be empty")
	}
	if !slices.Contains(store.Kinds, c.Backend) {
		return fmt.Errorf("backend must be one of %v (got %q)", store.Kinds, c.Backend)
	}
	if c.InputPath == "" {
		return errors.New("input path must not be empty")
	}
	if c.ReportPath == "" {
		return errors.New("report path must not be empty")
	}
	if c.LegacyPath == "" {
		return errors.New("legacy path must not be empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive (got %d)", c.BatchSize)
	}
	if c.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size too large (got %d, max %d)", c.BatchSize, MaxBatchSize)
	}
	if _, err := textio.Fallback(c.FallbackEncoding); err != nil {
		return err
	}
	return nil
}

// ResolvedBackend returns the concrete backend kind for StorePath.
func (c Config) ResolvedBackend() store.Kind {
	return store.Resolve(c.Backend, c.StorePath)
}

// LockDirectory returns where the process lock lives.
func (c Config) LockDirectory() string {
	if c.LockDir != "" {
		return c.LockDir
	}
	if c.ResolvedBackend() == store.KindPostgres {
		return "."
	}
	return filepath.Dir(c.StorePath)
}

// ReportFile returns the report path for a run started at the given time.
func (c Config) ReportFile(at time.Time, runID string) string {
	if !c.ReportPerRun {
		return c.ReportPath
	}
	return textio.RunReportPath(c.ReportPath, at, runID)
}

// String returns a human-readable representation of the config. Postgres
// DSNs are not printed since they may carry credentials.
func (c Config) String() string {
	storePath := c.StorePath
	if c.ResolvedBackend() == store.KindPostgres {
		storePath = "<postgres dsn>"
	}
	return fmt.Sprintf(
		"Config{Store: %s, Backend: %s, Legacy: %s, Input: %s, Report: %s, PerRun: %t, "+
			"Log: %s, BatchSize: %d, Progress: %t, Fallback: %s, KeepInput: %t}",
		storePath, c.ResolvedBackend(), c.LegacyPath, c.InputPath, c.ReportPath, c.ReportPerRun,
		c.LogPath, c.BatchSize, c.Progress, c.FallbackEncoding, c.KeepInput,
	)
}
