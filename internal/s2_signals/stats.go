package s2_signals

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

// StatsEngine measures the latest flow against the trailing window.
// The latest point is never part of its own basis; std is the population std.
// ⭐ SSOT: z-score 계산은 여기서만
type StatsEngine struct {
	config strategyconfig.Statistics
	logger *logger.Logger
}

// NewStatsEngine creates a new statistics engine
func NewStatsEngine(config strategyconfig.Statistics, log *logger.Logger) *StatsEngine {
	return &StatsEngine{
		config: config,
		logger: log.Component("stats"),
	}
}

// Compute returns the stats of one series, false when the basis is shorter than MinDays
func (e *StatsEngine) Compute(series *contracts.HistorySeries) (contracts.AnomalyStats, bool) {
	pts := series.Descending()
	if len(pts) < 1+e.config.MinDays {
		return contracts.AnomalyStats{}, false
	}

	latest := pts[0]
	basis := pts[1:]
	if len(basis) > e.config.WindowDays {
		basis = basis[:e.config.WindowDays]
	}
	if len(basis) < e.config.MinDays {
		return contracts.AnomalyStats{}, false
	}

	mean, std := meanStd(basis)
	z := 0.0
	if std > 0 {
		z = math.Abs(float64(latest.NetVolume)-mean) / std
	}

	return contracts.AnomalyStats{
		Code:      series.Code,
		Date:      latest.Date,
		Latest:    latest.NetVolume,
		Mean:      mean,
		Std:       std,
		ZScore:    z,
		Anomalous: z >= e.config.SigmaThreshold,
		Basis:     len(basis),
	}, true
}

// ComputeAll computes every series of h in parallel. The second result counts
// securities omitted for insufficient history.
func (e *StatsEngine) ComputeAll(ctx context.Context, h *contracts.History) (map[string]contracts.AnomalyStats, int, error) {
	codes := make([]string, 0, len(h.Series))
	for code := range h.Series {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	type slot struct {
		stats contracts.AnomalyStats
		ok    bool
	}
	results := make([]slot, len(codes))

	workers := e.config.Workers
	if workers < 1 {
		workers = 1
	}
	chunk := (len(codes) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(codes); start += chunk {
		end := start + chunk
		if end > len(codes) {
			end = len(codes)
		}
		start := start
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				s, ok := e.Compute(h.Series[codes[i]])
				results[i] = slot{stats: s, ok: ok}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make(map[string]contracts.AnomalyStats, len(codes))
	insufficient, anomalous := 0, 0
	for _, r := range results {
		if !r.ok {
			insufficient++
			continue
		}
		out[r.stats.Code] = r.stats
		if r.stats.Anomalous {
			anomalous++
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"computed":     len(out),
		"insufficient": insufficient,
		"anomalous":    anomalous,
	}).Info("statistics computed")

	return out, insufficient, nil
}

// meanStd returns the mean and population standard deviation
func meanStd(points []contracts.FlowPoint) (float64, float64) {
	n := float64(len(points))
	sum := 0.0
	for _, p := range points {
		sum += float64(p.NetVolume)
	}
	mean := sum / n

	sq := 0.0
	for _, p := range points {
		d := float64(p.NetVolume) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}
