package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/instflow/internal/brain"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data"
	"github.com/wonny/instflow/internal/s0_data/loader"
	"github.com/wonny/instflow/internal/s1_universe"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/config"
	"github.com/wonny/instflow/pkg/database"
	"github.com/wonny/instflow/pkg/logger"
	"github.com/wonny/instflow/pkg/metrics"
	"github.com/wonny/instflow/pkg/redis"
)

// Input sources
const (
	sourceCSV = "csv" // day files under FLOW_DATA_DIR
	sourceDB  = "db"  // snapshots recorded by earlier runs
)

// appOptions selects what a command needs wired
type appOptions struct {
	Source  string
	Persist bool // record inputs and publish results to PostgreSQL
	Archive bool // serve stored reports when the cache misses
	DryRun  bool
}

// app holds the wired dependencies of one command invocation
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	log      *logger.Logger

	db      *database.DB // nil when DB_ENABLED=false or not needed
	redis   *redis.Client
	cache   *redis.Cache
	metrics *metrics.Metrics
	reports *brain.ReportCache
	engine  *brain.Orchestrator
}

// newApp loads configuration and wires the engine
// 1. env config  2. engine parameters  3. DB/Redis  4. sources  5. orchestrator
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.Flow.DataDir = dataDir
	}
	if strategyFile != "" {
		cfg.Flow.StrategyPath = strategyFile
	}
	if verbose {
		cfg.LogLevel = "debug"
		cfg.LogFormat = "console"
	}

	log := logger.New(cfg)

	strategy, _, err := strategyconfig.Load(cfg.Flow.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("load engine parameters: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	a := &app{cfg: cfg, strategy: strategy, log: log}

	if opts.Source == sourceDB && !cfg.Database.Enabled {
		return nil, fmt.Errorf("source %q requires DB_ENABLED=true", sourceDB)
	}
	if opts.Source == sourceDB || (cfg.Database.Enabled && (opts.Archive || (opts.Persist && !opts.DryRun))) {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		log.Info("Connected to database")
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		// 캐시는 선택 사항: 연결 실패 시 메모리만 사용
		log.WithError(err).Warn("Redis unavailable, using in-memory report cache")
		rc = redis.Disabled()
	}
	a.redis = rc
	a.cache = redis.NewCache(rc, "instflow")
	a.reports = brain.NewReportCache(a.cache)
	if a.db != nil && opts.Archive {
		a.reports.WithFallback(brain.NewArchive(a.db.Pool))
	}

	if cfg.MetricsEnabled {
		a.metrics = metrics.New(prometheus.NewRegistry())
	}

	src, err := a.sources(opts.Source)
	if err != nil {
		a.Close()
		return nil, err
	}

	engine, err := brain.NewOrchestrator(strategy, src, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	engine.WithPublishers(a.reports)
	if a.metrics != nil {
		engine.WithMetrics(a.metrics)
	}
	if a.db != nil && opts.Persist && !opts.DryRun {
		persister := brain.NewPersister(a.db.Pool)
		if opts.Source != sourceDB {
			engine.WithRecorder(persister)
		}
		engine.WithPublishers(persister)
	}
	a.engine = engine

	return a, nil
}

func (a *app) sources(source string) (brain.Sources, error) {
	switch source {
	case "", sourceCSV:
		csv := loader.NewCSVSource(a.cfg.Flow.DataDir, a.strategy.Markets, a.strategy.Statistics.Workers, a.log)
		return brain.Sources{
			Snapshots: csv,
			Universes: s1_universe.NewBuilder(a.cfg.Flow.DataDir, a.strategy.Markets, s1_universe.DefaultConfig(), a.log),
			Prices:    csv,
		}, nil
	case sourceDB:
		return brain.Sources{
			Snapshots: s0_data.NewFlowRepository(a.db.Pool),
			Universes: s1_universe.NewRepository(a.db.Pool),
			Prices:    s0_data.NewPriceRepository(a.db.Pool),
		}, nil
	default:
		return brain.Sources{}, fmt.Errorf("unknown source %q (want %s or %s)", source, sourceCSV, sourceDB)
	}
}

// markets resolves --market values; empty means every configured market
func (a *app) markets(values []string) ([]contracts.Market, error) {
	if len(values) == 0 {
		out := make([]contracts.Market, 0, len(a.strategy.Markets))
		for _, p := range a.strategy.Markets {
			m, err := contracts.ParseMarket(p.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}

	out := make([]contracts.Market, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			m, err := contracts.ParseMarket(part)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// Close releases the DB pool and the Redis connection
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
