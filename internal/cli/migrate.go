package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/antidup/internal/migrate"
)

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	migrate.Result
	StoreSize int `json:"store_size"`
}

func (r MigrateResult) String() string {
	if !r.Found {
		return fmt.Sprintf("No legacy store found. Total in store: %d", r.StoreSize)
	}
	return fmt.Sprintf("Migrated legacy store: %d value(s), %d new, backup at %s\nTotal in store: %d",
		r.Values, r.Inserted, r.BackupPath, r.StoreSize)
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Import a legacy flat-file store into the indexed store",
		Long: `Import a legacy flat-file store into the indexed store without
processing any input.

The legacy file is renamed to <legacy>.bak once every value is in the
store. An existing backup is never overwritten; the next free .bak.N is
used instead. "antidup run" performs the same step automatically.

Example:
  antidup migrate
  antidup migrate --legacy old/IdsBD.txt --store IdsBD.sqlite`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeMigrate(cmd, rootOpts)
		},
	}
}

func executeMigrate(cmd *cobra.Command, opts *RootOptions) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	sess, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	f := sess.formatter
	if kind := sess.cfg.ResolvedBackend(); !kind.Indexed() {
		return fail(f, ExitCommandError, CodeMigration,
			fmt.Sprintf("cannot migrate into a %s store", kind), nil, nil)
	}

	mig, err := sess.migrateLegacy(ctx)
	if err != nil {
		return fail(f, ExitFailure, CodeMigration, "legacy store migration failed", err, mig)
	}

	size, err := sess.backend.Count(ctx)
	if err != nil {
		return fail(f, ExitFailure, CodeStore, "failed to count store", err, nil)
	}

	slog.Info("migrate complete", "found", mig.Found, "values", mig.Values, "inserted", mig.Inserted, "store_size", size)
	return f.Success(MigrateResult{Result: *mig, StoreSize: size})
}
