package dedup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/antidup/internal/progress"
	"github.com/roach88/antidup/internal/store"
)

// DefaultBatchSize is the number of values resolved against the store at once.
const DefaultBatchSize = 1000

// Config holds the deduplicator's settings.
type Config struct {
	BatchSize int

	// Progress enables a progress bar over batches, written to ProgressWriter.
	Progress       bool
	ProgressWriter io.Writer
}

// Deduplicator resolves input lines against a store.
type Deduplicator struct {
	backend store.Backend
	cfg     Config
}

// Result is the outcome of one run.
type Result struct {
	Stats RunStats

	// Report lists the newly accepted values in the order they were resolved.
	Report []string
}

// New creates a Deduplicator writing through backend.
func New(backend store.Backend, cfg Config) *Deduplicator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Deduplicator{backend: backend, cfg: cfg}
}

// batch is one collapsed chunk of input on its way to the store.
type batch struct {
	index  int
	values []string
	dups   int
}

// Run deduplicates lines against the store and persists the result.
//
// On error the returned Result still carries the statistics of every batch
// that was committed before the failure. The caller must not clear the input
// source unless Run returned a nil error.
func (d *Deduplicator) Run(ctx context.Context, lines []string) (*Result, error) {
	res := &Result{}
	res.Stats.TotalLines = len(lines)

	initial, err := d.backend.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("dedup: initial count: %w", err)
	}
	res.Stats.InitialStoreSize = initial
	res.Stats.FinalStoreSize = initial

	values := Normalize(lines)
	res.Stats.SkippedEmpty = len(lines) - len(values)
	parts := Partition(values, d.cfg.BatchSize)

	slog.Debug("dedup run starting",
		"lines", len(lines),
		"values", len(values),
		"batches", len(parts),
		"batch_size", d.cfg.BatchSize,
		"store_size", initial,
	)

	bar := progress.New(d.cfg.Progress, len(parts), d.cfg.ProgressWriter)

	batches := make(chan batch, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		for i, part := range parts {
			unique, dups := Collapse(part)
			select {
			case batches <- batch{index: i, values: unique, dups: dups}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for b := range batches {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := d.resolve(gctx, b, res); err != nil {
				return err
			}
			bar.Add(1)
		}
		return nil
	})

	err = g.Wait()
	bar.Finish()
	if err != nil {
		return res, err
	}

	if err := d.backend.Persist(ctx); err != nil {
		return res, fmt.Errorf("dedup: persist: %w", err)
	}

	final, err := d.backend.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("dedup: final count: %w", err)
	}
	res.Stats.FinalStoreSize = final

	if err := res.Stats.Check(); err != nil {
		// Another writer touched the store during the run.
		slog.Warn("run statistics inconsistent", "error", err)
	}
	return res, nil
}

// resolve checks one batch against the store and inserts what is new.
func (d *Deduplicator) resolve(ctx context.Context, b batch, res *Result) error {
	existing, err := d.backend.Contains(ctx, b.values)
	if err != nil {
		return fmt.Errorf("dedup: batch %d: %w", b.index, err)
	}

	fresh := make([]string, 0, len(b.values)-len(existing))
	for _, v := range b.values {
		if _, ok := existing[v]; !ok {
			fresh = append(fresh, v)
		}
	}

	inserted, err := d.backend.InsertAll(ctx, fresh)
	if err != nil {
		return fmt.Errorf("dedup: batch %d: %w", b.index, err)
	}
	if inserted != len(fresh) {
		slog.Warn("store ignored values reported as new",
			"batch", b.index, "new", len(fresh), "inserted", inserted)
	}

	res.Stats.Batches++
	res.Stats.IntraBatchDuplicates += b.dups
	res.Stats.StoreDuplicates += len(existing)
	res.Stats.Added += len(fresh)
	res.Stats.FinalStoreSize += len(fresh)
	res.Report = append(res.Report, fresh...)

	slog.Debug("batch resolved",
		"batch", b.index,
		"values", len(b.values),
		"intra_batch_duplicates", b.dups,
		"store_duplicates", len(existing),
		"added", len(fresh),
	)
	return nil
}

// Normalize trims every line and drops the ones left empty.
func Normalize(lines []string) []string {
	values := make([]string, 0, len(lines))
	for _, line := range lines {
		if v := strings.TrimSpace(line); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Partition cuts values into consecutive chunks of size; the last chunk may
// be shorter.
func Partition(values []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	parts := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		parts = append(parts, values[start:min(start+size, len(values))])
	}
	return parts
}

// Collapse removes repeats from a batch, keeping first occurrences in order,
// and returns how many values were removed.
func Collapse(values []string) ([]string, int) {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique, len(values) - len(unique)
}
