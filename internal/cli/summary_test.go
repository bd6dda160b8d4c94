package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/antidup/internal/dedup"
	"github.com/roach88/antidup/internal/migrate"
)

func TestRunSummary_Golden(t *testing.T) {
	tests := []struct {
		name    string
		summary RunSummary
	}{
		{
			name: "summary_added",
			summary: newRunSummary("run-1", &dedup.Result{Stats: dedup.RunStats{
				TotalLines:           5,
				SkippedEmpty:         1,
				IntraBatchDuplicates: 1,
				StoreDuplicates:      1,
				Added:                2,
				InitialStoreSize:     1,
				FinalStoreSize:       3,
				Batches:              1,
			}}, "GoodId.txt", true, nil),
		},
		{
			name: "summary_nothing_new",
			summary: newRunSummary("run-2", &dedup.Result{Stats: dedup.RunStats{
				TotalLines:       2,
				StoreDuplicates:  2,
				InitialStoreSize: 3,
				FinalStoreSize:   3,
				Batches:          1,
			}}, "GoodId.txt", true, nil),
		},
		{
			name: "summary_migration",
			summary: newRunSummary("run-3", &dedup.Result{Stats: dedup.RunStats{
				TotalLines:       2,
				StoreDuplicates:  1,
				Added:            1,
				InitialStoreSize: 2,
				FinalStoreSize:   3,
				Batches:          1,
			}}, "GoodId.txt", true, &migrate.Result{
				Found:      true,
				Lines:      3,
				Values:     3,
				Inserted:   2,
				BackupPath: "IdsBD.txt.bak",
			}),
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(tt.summary.String()))
		})
	}
}

func TestNewRunSummary_SkipsMissingMigration(t *testing.T) {
	res := &dedup.Result{Stats: dedup.RunStats{StoreDuplicates: 2, IntraBatchDuplicates: 1}}

	s := newRunSummary("id", res, "r.txt", false, &migrate.Result{})
	assert.Nil(t, s.Migration)
	assert.Equal(t, 3, s.Duplicates)
	assert.False(t, s.InputCleared)
}
