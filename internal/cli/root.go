package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/antidup/internal/config"
	"github.com/roach88/antidup/internal/store"
	"github.com/roach88/antidup/internal/textio"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Overrides holds the store/input/report flags. Only flags the user
	// actually set are applied on top of the loaded configuration.
	Overrides config.Config

	// RunID overrides the per-run id generator (for testing).
	// If nil, defaults to UUIDv7.
	RunID func() string

	// OpenStore overrides how the store is opened (for testing).
	// If nil, defaults to store.Open.
	OpenStore func(ctx context.Context, opts store.Options) (store.Backend, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the antidup CLI.
// Without a subcommand it behaves like "antidup run".
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "antidup",
		Short: "antidup - keep only lines you have never seen before",
		Long: `antidup reads newline-delimited values from an input file, drops every
value it has accepted in any earlier run, appends the new ones to a report
file and records them in a persistent store.

Running antidup without a subcommand is the same as "antidup run".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, opts)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "path to YAML config file (default "+config.DefaultConfigFile+" if present)")

	o := &opts.Overrides
	pf.StringVar(&o.StorePath, "store", config.DefaultStorePath, "store path or postgres:// DSN")
	pf.StringVar((*string)(&o.Backend), "backend", string(store.KindAuto), fmt.Sprintf("store backend %v", store.Kinds))
	pf.StringVar(&o.LegacyPath, "legacy", config.DefaultLegacyPath, "legacy flat-file store to migrate")
	pf.StringVar(&o.InputPath, "input", config.DefaultInputPath, "input file, cleared after a successful run")
	pf.StringVar(&o.ReportPath, "report", config.DefaultReportPath, "report file receiving newly added values")
	pf.BoolVar(&o.ReportPerRun, "report-per-run", false, "write a separate report file for every run")
	pf.StringVar(&o.LogPath, "log", config.DefaultLogPath, "persistent log file (empty disables)")
	pf.IntVar(&o.BatchSize, "batch-size", config.DefaultBatchSize, "values resolved against the store per batch")
	pf.BoolVar(&o.Progress, "progress", true, "show a progress bar")
	pf.StringVar(&o.FallbackEncoding, "fallback-encoding", textio.DefaultFallback, "encoding for files that are not UTF-8")
	pf.BoolVar(&o.KeepInput, "keep-input", false, "do not clear the input file after a run")
	pf.StringVar(&o.LockDir, "lock-dir", "", "directory for the process lock (default: store directory)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))

	return cmd
}

// flagSetters maps each override flag to the config field it sets.
var flagSetters = map[string]func(dst *config.Config, src config.Config){
	"store":             func(d *config.Config, s config.Config) { d.StorePath = s.StorePath },
	"backend":           func(d *config.Config, s config.Config) { d.Backend = s.Backend },
	"legacy":            func(d *config.Config, s config.Config) { d.LegacyPath = s.LegacyPath },
	"input":             func(d *config.Config, s config.Config) { d.InputPath = s.InputPath },
	"report":            func(d *config.Config, s config.Config) { d.ReportPath = s.ReportPath },
	"report-per-run":    func(d *config.Config, s config.Config) { d.ReportPerRun = s.ReportPerRun },
	"log":               func(d *config.Config, s config.Config) { d.LogPath = s.LogPath },
	"batch-size":        func(d *config.Config, s config.Config) { d.BatchSize = s.BatchSize },
	"progress":          func(d *config.Config, s config.Config) { d.Progress = s.Progress },
	"fallback-encoding": func(d *config.Config, s config.Config) { d.FallbackEncoding = s.FallbackEncoding },
	"keep-input":        func(d *config.Config, s config.Config) { d.KeepInput = s.KeepInput },
	"lock-dir":          func(d *config.Config, s config.Config) { d.LockDir = s.LockDir },
}

// loadConfig layers the config file, .env, environment and explicitly set
// flags.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (config.Config, error) {
	loadOpts := config.LoadOptions{
		File:   config.DefaultConfigFile,
		DotEnv: config.DefaultDotEnvFile,
	}
	if opts.ConfigFile != "" {
		loadOpts.File = opts.ConfigFile
		loadOpts.Explicit = true
	}

	cfg, err := config.Load(loadOpts)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	for name, set := range flagSetters {
		if flags.Changed(name) {
			set(&cfg, opts.Overrides)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
