package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/antidup/internal/dedup"
	"github.com/roach88/antidup/internal/textio"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Deduplicate the input file against the store",
		Long: `Deduplicate the input file against the store.

A legacy flat-file store is migrated first when one is found. Every input
line is trimmed; blank lines are skipped. Values never seen before are added
to the store and appended to the report file. The input file is cleared only
after the store and the report have been written.

Example:
  antidup run
  antidup run --input new.txt --report fresh.txt --batch-size 5000
  antidup run --store postgres://antidup@localhost/antidup?sslmode=disable`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, rootOpts)
		},
	}
}

func executeRun(cmd *cobra.Command, opts *RootOptions) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	sess, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	cfg, f := sess.cfg, sess.formatter
	runID := opts.runID()
	started := time.Now()
	slog.Info("run starting", "run_id", runID, "input", cfg.InputPath, "backend", cfg.ResolvedBackend())

	if err := textio.Touch(cfg.InputPath); err != nil {
		return fail(f, ExitCommandError, CodeInput, "failed to prepare input file", err, nil)
	}
	if !cfg.ReportPerRun {
		if err := textio.Touch(cfg.ReportPath); err != nil {
			return fail(f, ExitCommandError, CodeReport, "failed to prepare report file", err, nil)
		}
	}

	mig, err := sess.migrateLegacy(ctx)
	if err != nil {
		return fail(f, ExitFailure, CodeMigration, "legacy store migration failed", err, mig)
	}

	lines, _, err := textio.ReadLines(cfg.InputPath, cfg.FallbackEncoding)
	if err != nil {
		return fail(f, ExitCommandError, CodeInput, "failed to read input", err, nil)
	}

	d := dedup.New(sess.backend, dedup.Config{
		BatchSize:      cfg.BatchSize,
		Progress:       cfg.Progress && f.Format != "json",
		ProgressWriter: cmd.ErrOrStderr(),
	})
	res, err := d.Run(ctx, lines)
	if err != nil {
		// Committed batches stay in the store; the input is kept so the
		// whole run can be repeated.
		return fail(f, ExitFailure, CodeRun, "run failed, input kept", err, res.Stats)
	}

	reportPath := cfg.ReportFile(started, runID)
	if err := textio.AppendLines(reportPath, res.Report); err != nil {
		return fail(f, ExitFailure, CodeReport, "failed to write report, input kept", err, res.Stats)
	}

	cleared := false
	if !cfg.KeepInput {
		if err := textio.Truncate(cfg.InputPath); err != nil {
			return fail(f, ExitFailure, CodeClearInput, "failed to clear input", err, res.Stats)
		}
		cleared = true
	}

	summary := newRunSummary(runID, res, reportPath, cleared, mig)
	slog.Info("run complete", append(summary.logAttrs(), "elapsed", time.Since(started))...)
	return f.Success(summary)
}
