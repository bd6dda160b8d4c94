// Package progress renders an optional progress bar for batch processing.
package progress

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

// Reporter receives progress as work completes.
type Reporter interface {
	Add(n int)
	Finish()
}

// New returns a terminal progress bar over total units written to w, or a
// no-op Reporter when disabled or when there is nothing to do.
func New(enabled bool, total int, w io.Writer) Reporter {
	if !enabled || total <= 0 || w == nil {
		return Nop{}
	}
	bar := pb.New(total)
	bar.SetWriter(w)
	bar.Start()
	return &barReporter{bar: bar}
}

type barReporter struct {
	bar *pb.ProgressBar
}

func (r *barReporter) Add(n int) {
	r.bar.Add(n)
}

func (r *barReporter) Finish() {
	r.bar.Finish()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Add(int) {}
func (Nop) Finish() {}
