package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/instflow/internal/aggregate"
	"github.com/wonny/instflow/internal/collector"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data/quality"
	"github.com/wonny/instflow/internal/s2_signals"
	"github.com/wonny/instflow/internal/selection"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
	"github.com/wonny/instflow/pkg/metrics"
)

// ErrNoSnapshots is returned when the source yields no trading day at all
var ErrNoSnapshots = errors.New("no snapshots available")

// InputRecorder receives the raw inputs of a run before analysis
type InputRecorder interface {
	RecordInputs(ctx context.Context, batch *contracts.SnapshotBatch, universe *contracts.Universe) error
}

// Orchestrator coordinates one engine run per market
// S0 load → S1 universe → S2 rank/accumulate/stats → S3 classify → S4 aggregate → publish
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	snapshots contracts.SnapshotSource
	universes contracts.UniverseSource

	qualityGate *quality.QualityGate
	ranker      *s2_signals.Ranker
	stats       *s2_signals.StatsEngine
	classifier  *selection.Classifier
	reducer     *aggregate.Reducer
	collector   *collector.Collector

	publishers []contracts.ReportPublisher
	recorder   InputRecorder
	metrics    *metrics.Metrics

	config     *strategyconfig.Config
	configHash string
	logger     *logger.Logger
}

// Sources bundles the inputs of the engine. Prices may be nil.
type Sources struct {
	Snapshots contracts.SnapshotSource
	Universes contracts.UniverseSource
	Prices    contracts.PriceSource
}

// RunConfig holds configuration for a single run
type RunConfig struct {
	Market contracts.Market
	RunID  string // generated when empty
	DryRun bool   // analyze only, publish nothing
}

// RunResult holds the results of a complete run
type RunResult struct {
	Report          *contracts.Report
	Batch           *contracts.SnapshotBatch
	Universe        *contracts.Universe
	History         *contracts.History
	CompletedStages []string
	Duration        time.Duration
}

// NewOrchestrator wires every stage from the engine parameters.
// Invalid parameters are rejected here, before any data is read.
func NewOrchestrator(cfg *strategyconfig.Config, src Sources, log *logger.Logger) (*Orchestrator, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid engine parameters: %w", err)
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}
	reducer, err := aggregate.NewReducer(cfg.Aggregate, log)
	if err != nil {
		return nil, err
	}

	qcfg := quality.DefaultConfig()
	qcfg.MinFiles = cfg.Statistics.MinDays + 1

	return &Orchestrator{
		snapshots:   src.Snapshots,
		universes:   src.Universes,
		qualityGate: quality.NewQualityGate(qcfg),
		ranker:      s2_signals.NewRanker(cfg.Ranking, log),
		stats:       s2_signals.NewStatsEngine(cfg.Statistics, log),
		classifier:  selection.NewClassifier(cfg.Classification, log),
		reducer:     reducer,
		collector:   collector.NewCollector(src.Prices, cfg.Collector, log),
		config:      cfg,
		configHash:  hash,
		logger:      log.Component("orchestrator"),
	}, nil
}

// WithPublishers adds report publishers, called in order after a successful run
func (o *Orchestrator) WithPublishers(p ...contracts.ReportPublisher) *Orchestrator {
	o.publishers = append(o.publishers, p...)
	return o
}

// WithRecorder stores the raw inputs of each run
func (o *Orchestrator) WithRecorder(r InputRecorder) *Orchestrator {
	o.recorder = r
	return o
}

// WithMetrics records run metrics
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// ConfigHash returns the hash of the engine parameters
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// Run executes the complete pipeline for one market.
// Nothing is published unless every stage succeeds.
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	start := time.Now()
	result, err := o.run(ctx, rc)
	elapsed := time.Since(start)

	if o.metrics != nil {
		o.metrics.RecordRun(string(rc.Market), elapsed.Seconds(), err)
	}
	if err != nil {
		o.logger.WithError(err).WithField("market", string(rc.Market)).Error("pipeline run failed")
		return nil, err
	}
	result.Duration = elapsed

	o.logger.WithFields(map[string]interface{}{
		"run_id":   result.Report.RunID,
		"market":   string(rc.Market),
		"as_of":    contracts.DateKey(result.Report.AsOf),
		"duration": elapsed.Seconds(),
		"stages":   len(result.CompletedStages),
	}).Info("pipeline run completed successfully")

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	result := &RunResult{CompletedStages: make([]string, 0, 6)}
	market := string(rc.Market)

	// S0: load day files
	batch, err := o.snapshots.LoadSnapshots(ctx, rc.Market, o.config.History.LoadDays)
	if err != nil {
		return nil, fmt.Errorf("S0 failed: %w", err)
	}
	latest, ok := batch.Latest()
	if !ok {
		return nil, fmt.Errorf("S0 failed: %s: %w", market, ErrNoSnapshots)
	}
	result.Batch = batch
	result.CompletedStages = append(result.CompletedStages, "S0:Load")

	if o.metrics != nil {
		o.metrics.RecordSkipped(market, "flow", batch.Skipped)
		o.metrics.RecordDuplicates(market, batch.Duplicates)
	}

	// S1: allow-list
	universe, err := o.universes.LoadUniverse(ctx, rc.Market)
	if err != nil {
		return nil, fmt.Errorf("S1 failed: %w", err)
	}
	result.Universe = universe
	result.CompletedStages = append(result.CompletedStages, "S1:Universe")

	assessment := o.qualityGate.Check(batch, universe)
	if !assessment.Passed {
		o.logger.WithFields(map[string]interface{}{
			"market": market,
			"issues": assessment.Issues,
		}).Warn("data quality below thresholds")
	}

	if !rc.DryRun && o.recorder != nil {
		if err := o.recorder.RecordInputs(ctx, batch, universe); err != nil {
			return nil, fmt.Errorf("record inputs: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// S2: rankings, history, statistics
	rankings := o.ranker.RankAll(batch.Snapshots, universe)
	history := s2_signals.Accumulate(batch.Snapshots, universe, o.config.History.RetainDays, o.logger)
	stats, insufficient, err := o.stats.ComputeAll(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("S2 failed: %w", err)
	}
	assessment.Quality.InsufficientHist = insufficient
	result.History = history
	result.CompletedStages = append(result.CompletedStages, "S2:Signals")

	// S3: new entrants and observables
	classification := o.classifier.Classify(rankings, history, stats)
	result.CompletedStages = append(result.CompletedStages, "S3:Classify")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// S4: leaderboards
	agg, err := o.reducer.Reduce(aggregate.Input{
		Rankings: rankings,
		History:  history,
		Universe: universe,
	}, contracts.Scope(o.config.Aggregate.Scope))
	if err != nil {
		return nil, fmt.Errorf("S4 failed: %w", err)
	}
	result.CompletedStages = append(result.CompletedStages, "S4:Aggregate")

	runID := rc.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%s-%d", market, latest.Date.Format("20060102"), time.Now().Unix())
	}

	report := &contracts.Report{
		RunID:          runID,
		Market:         rc.Market,
		AsOf:           latest.Date,
		ConfigHash:     o.configHash,
		GeneratedAt:    time.Now(),
		Rankings:       rankings,
		Stats:          stats,
		Classification: *classification,
		Aggregate:      *agg,
		Quality:        assessment.Quality,
		QualityPassed:  assessment.Passed,
		QualityIssues:  assessment.Issues,
	}
	result.Report = report

	if rc.DryRun {
		o.logger.Info("skipping publish (dry run mode)")
		return result, nil
	}

	for _, p := range o.publishers {
		if err := p.Publish(ctx, report); err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
	}
	result.CompletedStages = append(result.CompletedStages, "S5:Publish")

	if o.metrics != nil {
		o.metrics.RecordResult(market, report.AnomalyCount(), len(agg.CrossListings), time.Now().Unix())
	}

	return result, nil
}

// CollectHistory merges flow and prices for codes, or for the collector targets
// of scope when codes is empty.
func (o *Orchestrator) CollectHistory(ctx context.Context, market contracts.Market, scope contracts.Scope, codes []string) ([]contracts.MergedHistory, error) {
	limit := o.config.History.LoadDays
	if o.config.Collector.MaxDays > limit {
		limit = o.config.Collector.MaxDays
	}

	batch, err := o.snapshots.LoadSnapshots(ctx, market, limit)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	latest, ok := batch.Latest()
	if !ok {
		return nil, fmt.Errorf("%s: %w", market, ErrNoSnapshots)
	}

	if len(codes) == 0 {
		universe, err := o.universes.LoadUniverse(ctx, market)
		if err != nil {
			return nil, fmt.Errorf("load universe: %w", err)
		}
		codes, err = o.collector.Targets(scope, o.ranker.Rank(latest, universe), batch.Snapshots, universe)
		if err != nil {
			return nil, err
		}
	}

	return o.collector.Collect(ctx, market, batch.Snapshots, codes)
}
