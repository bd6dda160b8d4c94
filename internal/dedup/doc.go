// Package dedup resolves one run of raw input lines against a store.Backend.
//
// Lines are trimmed, blank lines are skipped, and the remaining values are
// cut into fixed-size batches. Each batch is collapsed to an ordered set, the
// set is checked against the store in one Contains call, and whatever is new
// is written with one InsertAll call and appended to the run's report.
//
// # Statistics
//
// A value repeated inside a batch counts as an intra-batch duplicate; a value
// already in the store counts as a store duplicate. The reported duplicate
// total is the sum of both, so a value seen three times in one run adds 1 to
// Added and 2 to Duplicates(). For every run:
//
//	Added + StoreDuplicates + IntraBatchDuplicates + SkippedEmpty == TotalLines
//	FinalStoreSize == InitialStoreSize + Added
//
// # Pipeline
//
// Normalizing and collapsing batches runs in a producer goroutine; a single
// consumer goroutine talks to the store, in batch order. The store therefore
// never sees concurrent calls and report order follows input order.
package dedup
