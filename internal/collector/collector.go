package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

// Collector merges institutional flow with daily prices for chart rendering
// ⭐ SSOT: 차트용 이력 병합은 여기서만
type Collector struct {
	prices contracts.PriceSource
	config strategyconfig.Collector
	logger *logger.Logger
}

// NewCollector creates a collector. prices may be nil, in which case only flow is merged.
func NewCollector(prices contracts.PriceSource, config strategyconfig.Collector, log *logger.Logger) *Collector {
	return &Collector{
		prices: prices,
		config: config,
		logger: log.Component("collector"),
	}
}

// Targets returns the codes to collect, sorted.
// ScopeRanked takes the latest top buy and sell lists, ScopeAll every eligible code seen in snaps.
func (c *Collector) Targets(scope contracts.Scope, latest *contracts.RankingResult, snaps []contracts.DailySnapshot, universe *contracts.Universe) ([]string, error) {
	set := make(map[string]struct{})

	switch scope {
	case contracts.ScopeRanked:
		if latest == nil {
			return []string{}, nil
		}
		for _, e := range latest.Buy {
			set[e.Code] = struct{}{}
		}
		for _, e := range latest.Sell {
			set[e.Code] = struct{}{}
		}
	case contracts.ScopeAll:
		for i := range snaps {
			for _, rec := range snaps[i].Records {
				if universe.Eligible(rec.Code) {
					set[rec.Code] = struct{}{}
				}
			}
		}
	default:
		return nil, fmt.Errorf("history collector: invalid scope %q", scope)
	}

	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// Collect joins flow (from snaps) and prices by date for every code.
// A date present on only one side still yields a record. Each history is
// ascending and capped to the most recent MaxDays dates.
func (c *Collector) Collect(ctx context.Context, market contracts.Market, snaps []contracts.DailySnapshot, codes []string) ([]contracts.MergedHistory, error) {
	since, err := c.config.SinceDate()
	if err != nil {
		return nil, fmt.Errorf("history collector: since: %w", err)
	}

	want := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		want[code] = struct{}{}
	}

	records := make(map[string]map[string]*contracts.MergedRecord, len(codes))
	names := make(map[string]string, len(codes))
	slot := func(code string, date time.Time) *contracts.MergedRecord {
		byDate, ok := records[code]
		if !ok {
			byDate = make(map[string]*contracts.MergedRecord)
			records[code] = byDate
		}
		key := contracts.DateKey(date)
		rec, ok := byDate[key]
		if !ok {
			rec = &contracts.MergedRecord{Date: date}
			byDate[key] = rec
		}
		return rec
	}

	for i := range snaps {
		snap := &snaps[i]
		if !since.IsZero() && snap.Date.Before(since) {
			continue
		}
		for _, r := range snap.Records {
			if _, ok := want[r.Code]; !ok {
				continue
			}
			rec := slot(r.Code, snap.Date)
			v := r.NetVolume
			rec.NetVolume = &v
			rec.Components = r.Components
			if r.Name != "" {
				names[r.Code] = r.Name
			}
		}
	}

	priceDays := 0
	if c.prices != nil && len(codes) > 0 {
		batch, err := c.prices.LoadPrices(ctx, market, codes, since)
		if err != nil {
			// 가격 없이도 수급 이력은 제공
			c.logger.WithError(err).WithField("market", string(market)).Warn("price source unavailable, merging flow only")
		} else {
			for code, points := range batch.Prices {
				if _, ok := want[code]; !ok {
					continue
				}
				for i := range points {
					p := points[i]
					if !since.IsZero() && p.Date.Before(since) {
						continue
					}
					slot(code, p.Date).Price = &p
					priceDays++
				}
			}
			if batch.Skipped > 0 {
				c.logger.WithFields(map[string]interface{}{
					"market":  string(market),
					"skipped": batch.Skipped,
				}).Warn("price files skipped")
			}
		}
	}

	out := make([]contracts.MergedHistory, 0, len(codes))
	for _, code := range codes {
		h := contracts.MergedHistory{Code: code, Name: names[code], Records: []contracts.MergedRecord{}}
		for _, rec := range records[code] {
			h.Records = append(h.Records, *rec)
		}
		sort.Slice(h.Records, func(i, j int) bool { return h.Records[i].Date.Before(h.Records[j].Date) })
		if c.config.MaxDays > 0 && len(h.Records) > c.config.MaxDays {
			h.Records = h.Records[len(h.Records)-c.config.MaxDays:]
		}
		out = append(out, h)
	}

	c.logger.WithFields(map[string]interface{}{
		"market":     string(market),
		"securities": len(out),
		"price_days": priceDays,
	}).Info("history collected")

	return out, nil
}
