package dedup

import "fmt"

// RunStats are the counts for one run. They are never persisted.
type RunStats struct {
	TotalLines           int `json:"total_lines"`
	SkippedEmpty         int `json:"skipped_empty"`
	IntraBatchDuplicates int `json:"intra_batch_duplicates"`
	StoreDuplicates      int `json:"store_duplicates"`
	Added                int `json:"added"`
	InitialStoreSize     int `json:"initial_store_size"`
	FinalStoreSize       int `json:"final_store_size"`
	Batches              int `json:"batches"`
}

// Duplicates is the reported duplicate total: intra-batch collisions plus
// values already in the store.
func (s RunStats) Duplicates() int {
	return s.IntraBatchDuplicates + s.StoreDuplicates
}

// Check verifies the accounting identities of a completed run.
func (s RunStats) Check() error {
	if got := s.Added + s.StoreDuplicates + s.IntraBatchDuplicates + s.SkippedEmpty; got != s.TotalLines {
		return fmt.Errorf("stats do not add up: %d accounted, %d lines read", got, s.TotalLines)
	}
	if s.FinalStoreSize != s.InitialStoreSize+s.Added {
		return fmt.Errorf("store grew by %d, but %d values were added",
			s.FinalStoreSize-s.InitialStoreSize, s.Added)
	}
	return nil
}
