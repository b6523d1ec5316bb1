package contracts

import "time"

// RunQuality summarizes what the run ingested and what it dropped
type RunQuality struct {
	FilesProcessed   int     `json:"files_processed"`
	FilesSkipped     int     `json:"files_skipped"`
	RecordsTotal     int     `json:"records_total"`
	RecordsKept      int     `json:"records_kept"`
	Duplicates       int     `json:"duplicates"`
	DuplicateDays    int     `json:"duplicate_days"`
	EmptyCodes       int     `json:"empty_codes"`
	EligibleLatest   int     `json:"eligible_latest"`   // eligible records on the latest day
	IneligibleLatest int     `json:"ineligible_latest"` // filtered out by the allow-list
	Coverage         float64 `json:"coverage"`          // eligible latest / universe size
	InsufficientHist int     `json:"insufficient_history"`
}

// Report is everything one engine run produces for a market
// ⭐ SSOT: 분석 결과는 Report 하나로 전달
type Report struct {
	RunID          string                  `json:"run_id"`
	Market         Market                  `json:"market"`
	AsOf           time.Time               `json:"as_of"`
	ConfigHash     string                  `json:"config_hash"`
	GeneratedAt    time.Time               `json:"generated_at"`
	Rankings       []RankingResult         `json:"rankings"` // most recent first
	Stats          map[string]AnomalyStats `json:"stats"`
	Classification Classification          `json:"classification"`
	Aggregate      AggregateResult         `json:"aggregate"`
	Quality        RunQuality              `json:"quality"`
	QualityPassed  bool                    `json:"quality_passed"`
	QualityIssues  []string                `json:"quality_issues,omitempty"`
}

// Latest returns the ranking of the most recent day
func (r *Report) Latest() (*RankingResult, bool) {
	if r == nil || len(r.Rankings) == 0 {
		return nil, false
	}
	return &r.Rankings[0], true
}

// AnomalyCount counts anomalous securities
func (r *Report) AnomalyCount() int {
	n := 0
	for _, s := range r.Stats {
		if s.Anomalous {
			n++
		}
	}
	return n
}
