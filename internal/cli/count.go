package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/antidup/internal/migrate"
)

// CountResult is the output of the count command.
type CountResult struct {
	Backend          string `json:"backend"`
	Count            int    `json:"count"`
	PendingMigration bool   `json:"pending_migration"`
}

func (r CountResult) String() string {
	s := fmt.Sprintf("Total in store: %d (%s)", r.Count, r.Backend)
	if r.PendingMigration {
		s += "\nA legacy store is waiting to be migrated; run \"antidup migrate\"."
	}
	return s
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of values in the store",
		Long: `Print the number of values in the store.

Values still sitting in an unmigrated legacy file are not counted.

Example:
  antidup count
  antidup count --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCount(cmd, rootOpts)
		},
	}
}

func executeCount(cmd *cobra.Command, opts *RootOptions) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	sess, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	n, err := sess.backend.Count(ctx)
	if err != nil {
		return fail(sess.formatter, ExitFailure, CodeStore, "failed to count store", err, nil)
	}

	kind := sess.cfg.ResolvedBackend()
	pending := false
	if kind.Indexed() {
		pending, _ = migrate.Pending(sess.cfg.LegacyPath)
	}

	return sess.formatter.Success(CountResult{
		Backend:          string(kind),
		Count:            n,
		PendingMigration: pending,
	})
}
