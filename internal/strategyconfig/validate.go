package strategyconfig

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/wonny/instflow/internal/contracts"
)

// ErrConflictingSelection is returned when threshold and top-N selection are both requested
var ErrConflictingSelection = errors.New("threshold and top_n selection are mutually exclusive")

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{Field: "meta.strategy_id", Message: "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{Field: "meta.timezone", Message: err.Error()}
		}
	}

	// === Markets ===
	if len(cfg.Markets) == 0 {
		return ValidationError{Field: "markets", Message: "at least one market required"}
	}
	seen := make(map[contracts.Market]bool)
	for i, m := range cfg.Markets {
		field := fmt.Sprintf("markets[%d]", i)
		id, err := contracts.ParseMarket(m.ID)
		if err != nil {
			return ValidationError{Field: field + ".id", Message: err.Error()}
		}
		if seen[id] {
			return ValidationError{Field: field + ".id", Message: "duplicate market"}
		}
		seen[id] = true
		if m.FlowDir == "" {
			return ValidationError{Field: field + ".flow_dir", Message: "required"}
		}
	}

	// === Ranking ===
	r := cfg.Ranking
	if r.BuyCount <= 0 || r.SellCount <= 0 || r.FundCount <= 0 || r.TrackedCount <= 0 {
		return ValidationError{Field: "ranking", Message: "all counts must be > 0"}
	}

	// === Statistics ===
	s := cfg.Statistics
	if s.SigmaThreshold <= 0 {
		return ValidationError{Field: "statistics.sigma_threshold", Message: "must be > 0"}
	}
	if s.MinDays < 2 {
		return ValidationError{Field: "statistics.min_days", Message: "must be >= 2"}
	}
	if s.WindowDays < s.MinDays {
		return ValidationError{Field: "statistics.window_days", Message: "must be >= min_days"}
	}
	if s.Workers < 1 {
		return ValidationError{Field: "statistics.workers", Message: "must be >= 1"}
	}

	// === History ===
	// 최신 1일 + 통계 창
	if cfg.History.RetainDays < s.WindowDays+1 {
		return ValidationError{Field: "history.retain_days", Message: fmt.Sprintf("must be >= window_days+1 (%d)", s.WindowDays+1)}
	}
	if cfg.History.LoadDays < 1 {
		return ValidationError{Field: "history.load_days", Message: "must be >= 1"}
	}

	// === Classification ===
	c := cfg.Classification
	if c.LookbackDays < 1 {
		return ValidationError{Field: "classification.lookback_days", Message: "must be >= 1"}
	}
	if c.PersistentMinDays < 1 || c.PersistentMinDays > c.LookbackDays {
		return ValidationError{Field: "classification.persistent_min_days", Message: "must be in [1, lookback_days]"}
	}
	if c.ObservablePool != PoolTopN && c.ObservablePool != PoolTracked {
		return ValidationError{Field: "classification.observable_pool", Message: "must be top_n or tracked"}
	}

	// === Aggregate ===
	if err := ValidateAggregate(cfg.Aggregate); err != nil {
		return err
	}

	// === Collector ===
	if cfg.Collector.MaxDays < 1 {
		return ValidationError{Field: "collector.max_days", Message: "must be >= 1"}
	}
	if !contracts.Scope(cfg.Collector.Scope).Valid() {
		return ValidationError{Field: "collector.scope", Message: "must be ranked or all"}
	}
	if _, err := cfg.Collector.SinceDate(); err != nil {
		return ValidationError{Field: "collector.since", Message: "must be YYYY-MM-DD"}
	}

	return nil
}

// ValidateAggregate checks the aggregate section on its own.
// Selection must be explicit: the mode names exactly one parameter and the other stays unset.
func ValidateAggregate(a Aggregate) error {
	if a.Days < 1 {
		return ValidationError{Field: "aggregate.days", Message: "must be >= 1"}
	}
	if a.TimelineDays < 1 {
		return ValidationError{Field: "aggregate.timeline_days", Message: "must be >= 1"}
	}
	if !contracts.Scope(a.Scope).Valid() {
		return ValidationError{Field: "aggregate.scope", Message: "must be ranked or all"}
	}

	if a.Threshold != 0 && a.TopN != 0 {
		return ValidationError{Field: "aggregate", Message: "threshold and top_n both set", Err: ErrConflictingSelection}
	}

	switch a.SelectionMode() {
	case contracts.SelectionThreshold:
		if a.Threshold <= 0 {
			return ValidationError{Field: "aggregate.threshold", Message: "must be > 0 in threshold mode"}
		}
	case contracts.SelectionTopN:
		if a.TopN <= 0 {
			return ValidationError{Field: "aggregate.top_n", Message: "must be > 0 in top_n mode"}
		}
	default:
		return ValidationError{Field: "aggregate.mode", Message: "must be threshold or top_n"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Ranking.TrackedCount > cfg.Ranking.SellCount || cfg.Ranking.TrackedCount > cfg.Ranking.BuyCount {
		warnings = append(warnings, Warning{
			Code:    "TRACKED_EXCEEDS_TOP",
			Message: "tracked_count larger than a top list: tracked entries will include codes not shown in the top list",
		})
	}

	if cfg.History.LoadDays < cfg.Statistics.MinDays+1 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_LOAD",
			Message: "load_days below min_days+1: no security can reach a z-score",
		})
	}

	if cfg.Aggregate.Days > cfg.History.LoadDays {
		warnings = append(warnings, Warning{
			Code:    "AGGREGATE_BEYOND_LOAD",
			Message: "aggregate.days exceeds load_days: window is truncated to the loaded days",
		})
	}

	return warnings
}
