package quality

import (
	"fmt"

	"github.com/wonny/instflow/internal/contracts"
)

// Config holds the data quality thresholds of a run
type Config struct {
	MinFiles        int     `yaml:"min_files"`         // day files needed for statistics
	MaxSkippedRatio float64 `yaml:"max_skipped_ratio"` // skipped / (processed+skipped)
	MinCoverage     float64 `yaml:"min_coverage"`      // eligible latest records / universe size
}

// DefaultConfig matches a 61-file load with a 30-day statistics minimum
func DefaultConfig() Config {
	return Config{MinFiles: 31, MaxSkippedRatio: 0.2, MinCoverage: 0.8}
}

// Assessment is the quality summary plus threshold violations.
// Violations are reported, never fatal: skipped data only narrows the analysis.
type Assessment struct {
	Quality contracts.RunQuality `json:"quality"`
	Passed  bool                 `json:"passed"`
	Issues  []string             `json:"issues,omitempty"`
}

// QualityGate summarizes what a run ingested
type QualityGate struct {
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check builds the run quality from the snapshot batch and the allow-list
// ⭐ SSOT: S0 → S1 품질 요약
func (g *QualityGate) Check(batch *contracts.SnapshotBatch, universe *contracts.Universe) *Assessment {
	q := contracts.RunQuality{
		FilesProcessed: batch.Processed,
		FilesSkipped:   batch.Skipped,
		RecordsTotal:   batch.RawRecords,
		Duplicates:     batch.Duplicates,
		DuplicateDays:  batch.DuplicateDays,
		EmptyCodes:     batch.EmptyCodes,
	}
	for _, s := range batch.Snapshots {
		q.RecordsKept += len(s.Records)
	}

	if latest, ok := batch.Latest(); ok {
		for _, rec := range latest.Records {
			if universe.Eligible(rec.Code) {
				q.EligibleLatest++
			} else {
				q.IneligibleLatest++
			}
		}
	}
	if n := universe.Count(); n > 0 {
		q.Coverage = float64(q.EligibleLatest) / float64(n)
	}

	a := &Assessment{Quality: q, Passed: true}

	if len(batch.Snapshots) < g.config.MinFiles {
		a.fail(fmt.Sprintf("only %d day files, need %d for statistics", len(batch.Snapshots), g.config.MinFiles))
	}
	if total := q.FilesProcessed + q.FilesSkipped; total > 0 {
		if ratio := float64(q.FilesSkipped) / float64(total); ratio > g.config.MaxSkippedRatio {
			a.fail(fmt.Sprintf("skipped %.0f%% of day files", ratio*100))
		}
	}
	if universe.Count() > 0 && q.Coverage < g.config.MinCoverage {
		a.fail(fmt.Sprintf("latest day covers %.1f%% of the allow-list", q.Coverage*100))
	}
	if q.Duplicates > 0 {
		a.Issues = append(a.Issues, fmt.Sprintf("%d duplicate codes resolved by last write", q.Duplicates))
	}
	if q.DuplicateDays > 0 {
		a.Issues = append(a.Issues, fmt.Sprintf("%d day files dropped for a repeated date", q.DuplicateDays))
	}

	return a
}

func (a *Assessment) fail(issue string) {
	a.Passed = false
	a.Issues = append(a.Issues, issue)
}
