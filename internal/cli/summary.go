package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/roach88/antidup/internal/dedup"
	"github.com/roach88/antidup/internal/migrate"
)

// RunSummary is printed after every run.
type RunSummary struct {
	RunID        string          `json:"run_id"`
	Stats        dedup.RunStats  `json:"stats"`
	Duplicates   int             `json:"duplicates"`
	ReportPath   string          `json:"report_path"`
	InputCleared bool            `json:"input_cleared"`
	Migration    *migrate.Result `json:"migration,omitempty"`
}

func newRunSummary(runID string, res *dedup.Result, reportPath string, cleared bool, mig *migrate.Result) RunSummary {
	s := RunSummary{
		RunID:        runID,
		Stats:        res.Stats,
		Duplicates:   res.Stats.Duplicates(),
		ReportPath:   reportPath,
		InputCleared: cleared,
	}
	if mig != nil && mig.Found {
		s.Migration = mig
	}
	return s
}

// String renders the human-readable summary.
func (s RunSummary) String() string {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var b strings.Builder
	if m := s.Migration; m != nil {
		fmt.Fprintf(&b, "Migrated legacy store: %d value(s), %d new, backup at %s\n\n",
			m.Values, m.Inserted, m.BackupPath)
	}

	b.WriteString(header("--- Statistics ---") + "\n")
	fmt.Fprintf(&b, "Lines read:        %d\n", s.Stats.TotalLines)
	fmt.Fprintf(&b, "Skipped empty:     %d\n", s.Stats.SkippedEmpty)
	fmt.Fprintf(&b, "Duplicates found:  %s\n", yellow(s.Duplicates))
	fmt.Fprintf(&b, "Unique added:      %s\n", green(s.Stats.Added))
	fmt.Fprintf(&b, "Total in store:    %d", s.Stats.FinalStoreSize)

	if s.Stats.Added > 0 {
		fmt.Fprintf(&b, "\n\nNew values appended to %s", s.ReportPath)
	}
	return b.String()
}

// logAttrs flattens the summary into slog key/value pairs.
func (s RunSummary) logAttrs() []any {
	return []any{
		"run_id", s.RunID,
		"lines", s.Stats.TotalLines,
		"skipped_empty", s.Stats.SkippedEmpty,
		"intra_batch_duplicates", s.Stats.IntraBatchDuplicates,
		"store_duplicates", s.Stats.StoreDuplicates,
		"duplicates", s.Duplicates,
		"added", s.Stats.Added,
		"store_size", s.Stats.FinalStoreSize,
		"report", s.ReportPath,
		"input_cleared", s.InputCleared,
	}
}
