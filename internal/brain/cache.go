package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/pkg/redis"
)

// ErrReportNotFound is returned when no report was published for a market
var ErrReportNotFound = errors.New("report not found")

// ReportCache keeps the latest report per market in memory and mirrors it to Redis
// so API processes started after the run can serve it.
// ⭐ SSOT: 최신 분석 결과 캐시
type ReportCache struct {
	mu       sync.RWMutex
	reports  map[contracts.Market]*contracts.Report
	cache    *redis.Cache
	fallback contracts.ReportReader
}

// NewReportCache creates a report cache. cache may be nil (memory only).
func NewReportCache(cache *redis.Cache) *ReportCache {
	return &ReportCache{
		reports: make(map[contracts.Market]*contracts.Report),
		cache:   cache,
	}
}

var (
	_ contracts.ReportPublisher = (*ReportCache)(nil)
	_ contracts.ReportReader    = (*ReportCache)(nil)
)

// WithFallback consults r when neither memory nor Redis holds a report
func (c *ReportCache) WithFallback(r contracts.ReportReader) *ReportCache {
	c.fallback = r
	return c
}

// Publish stores report as the latest of its market
func (c *ReportCache) Publish(ctx context.Context, report *contracts.Report) error {
	c.mu.Lock()
	c.reports[report.Market] = report
	c.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.Set(ctx, redis.ReportKey(string(report.Market)), report, redis.TTLReport); err != nil {
			return fmt.Errorf("cache report: %w", err)
		}
	}
	return nil
}

// LatestReport returns the latest report: memory, then Redis, then the fallback reader
func (c *ReportCache) LatestReport(ctx context.Context, market contracts.Market) (*contracts.Report, error) {
	c.mu.RLock()
	report, ok := c.reports[market]
	c.mu.RUnlock()
	if ok {
		return report, nil
	}

	report, err := c.load(ctx, market)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.reports[market] = report
	c.mu.Unlock()

	return report, nil
}

func (c *ReportCache) load(ctx context.Context, market contracts.Market) (*contracts.Report, error) {
	if c.cache != nil {
		var cached contracts.Report
		found, err := c.cache.Get(ctx, redis.ReportKey(string(market)), &cached)
		if err != nil {
			return nil, err
		}
		if found {
			return &cached, nil
		}
	}

	if c.fallback == nil {
		return nil, ErrReportNotFound
	}
	return c.fallback.LatestReport(ctx, market)
}
