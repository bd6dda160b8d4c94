// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync"
)

// FixedRunID generates the same run id every time.
//
// Report file names and summaries that embed the run id become stable, so
// they can be compared byte for byte.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator.
// If id is empty, Generate() returns "test-run".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunID) Generate() string {
	return g.id
}

// SequentialRunIDs hands out "<prefix>-1", "<prefix>-2", ... so that
// consecutive runs in one test get distinct but predictable ids.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialRunIDs creates a generator whose first id is "<prefix>-1".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset starts the sequence over. The next id is "<prefix>-1" again.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
