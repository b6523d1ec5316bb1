package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
	"github.com/wonny/instflow/pkg/metrics"
)

func day(n int) time.Time {
	return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

type fakeSnapshots struct {
	snaps []contracts.DailySnapshot // most recent first
	limit int
}

func (f *fakeSnapshots) LoadSnapshots(_ context.Context, market contracts.Market, limit int) (*contracts.SnapshotBatch, error) {
	f.limit = limit
	snaps := f.snaps
	if len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return &contracts.SnapshotBatch{Snapshots: snaps, Processed: len(snaps)}, nil
}

type fakeUniverse struct {
	universe *contracts.Universe
}

func (f fakeUniverse) LoadUniverse(context.Context, contracts.Market) (*contracts.Universe, error) {
	return f.universe, nil
}

type fakePrices struct{}

func (fakePrices) LoadPrices(_ context.Context, _ contracts.Market, codes []string, _ time.Time) (*contracts.PriceBatch, error) {
	out := &contracts.PriceBatch{Prices: make(map[string][]contracts.PricePoint)}
	for _, code := range codes {
		out.Prices[code] = []contracts.PricePoint{{Date: day(4), Close: 38}}
	}
	return out, nil
}

type recordingPublisher struct {
	reports []*contracts.Report
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, r *contracts.Report) error {
	if p.err != nil {
		return p.err
	}
	p.reports = append(p.reports, r)
	return nil
}

// scenario returns five days, most recent first, where 0056 nets
// +500, +600, -200, +700, +900 lots on days 1 to 5
func scenario() []contracts.DailySnapshot {
	volumes := []int64{500, 600, -200, 700, 900}
	var snaps []contracts.DailySnapshot
	for i := len(volumes) - 1; i >= 0; i-- {
		d := day(i)
		snaps = append(snaps, contracts.DailySnapshot{
			Market: contracts.MarketTSE,
			Date:   d,
			Records: []contracts.SecurityRecord{
				{Code: "0056", Name: "元大高股息", NetVolume: volumes[i], Date: d},
				{Code: "2330", Name: "台積電", NetVolume: 100, Date: d},
				{Code: "2603", Name: "長榮", NetVolume: -300, Date: d},
				{Code: "9999", Name: "未上市", NetVolume: 99_999, Date: d},
			},
		})
	}
	return snaps
}

func scenarioUniverse() *contracts.Universe {
	return &contracts.Universe{Market: contracts.MarketTSE, Securities: map[string]contracts.Security{
		"0056": {Code: "0056", Name: "元大高股息", Sector: "ETF", Fund: true},
		"2330": {Code: "2330", Name: "台積電", Sector: "半導體業"},
		"2603": {Code: "2603", Name: "長榮", Sector: "航運業"},
	}}
}

func newOrchestrator(t *testing.T, snaps []contracts.DailySnapshot) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(strategyconfig.Default(), Sources{
		Snapshots: &fakeSnapshots{snaps: snaps},
		Universes: fakeUniverse{universe: scenarioUniverse()},
		Prices:    fakePrices{},
	}, logger.Nop())
	require.NoError(t, err)
	return o
}

func TestOrchestrator_Run(t *testing.T) {
	pub := &recordingPublisher{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	o := newOrchestrator(t, scenario()).WithPublishers(pub).WithMetrics(m)
	res, err := o.Run(context.Background(), RunConfig{Market: contracts.MarketTSE, RunID: "run-1"})
	require.NoError(t, err)

	report := res.Report
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, day(4), report.AsOf)
	assert.Equal(t, o.ConfigHash(), report.ConfigHash)
	require.Len(t, report.Rankings, 5)
	assert.Equal(t, day(4), report.Rankings[0].Date)

	c := report.Classification
	assert.NotContains(t, c.NewBuy, "0056")
	require.Contains(t, c.ObservableBuy, "0056")
	assert.Contains(t, c.ObservableBuy["0056"].Reasons, contracts.ReasonPersistentBuy)

	latest, ok := report.Latest()
	require.True(t, ok)
	assert.Equal(t, "0056", latest.FundBuy[0].Code)
	for _, e := range latest.Buy {
		assert.NotEqual(t, "9999", e.Code, "not on the allow-list")
	}

	agg := report.Aggregate
	require.NotEmpty(t, agg.Buy.Entries)
	assert.Equal(t, "0056", agg.Buy.Entries[0].Code)
	assert.Equal(t, int64(2700), agg.Buy.Entries[0].Sum)
	require.Len(t, agg.CrossListings, 1)
	assert.Equal(t, "0056", agg.CrossListings[0].Code)

	assert.Empty(t, report.Stats, "five days are not enough history")
	assert.Equal(t, 3, report.Quality.InsufficientHist)
	assert.False(t, report.QualityPassed)

	require.Len(t, pub.reports, 1)
	assert.Same(t, report, pub.reports[0])
	assert.Contains(t, res.CompletedStages, "S5:Publish")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("TSE", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CrossListed.WithLabelValues("TSE")))
}

func TestOrchestrator_NoSnapshots(t *testing.T) {
	pub := &recordingPublisher{}
	o := newOrchestrator(t, nil).WithPublishers(pub)

	_, err := o.Run(context.Background(), RunConfig{Market: contracts.MarketTSE})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSnapshots))
	assert.Empty(t, pub.reports)
}

func TestOrchestrator_PublishFailure(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("redis down")}
	after := &recordingPublisher{}
	o := newOrchestrator(t, scenario()).WithPublishers(failing, after)

	_, err := o.Run(context.Background(), RunConfig{Market: contracts.MarketTSE})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Empty(t, after.reports)
}

func TestOrchestrator_DryRun(t *testing.T) {
	pub := &recordingPublisher{}
	o := newOrchestrator(t, scenario()).WithPublishers(pub)

	res, err := o.Run(context.Background(), RunConfig{Market: contracts.MarketTSE, DryRun: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Report.RunID)
	assert.Empty(t, pub.reports)
	assert.NotContains(t, res.CompletedStages, "S5:Publish")
}

func TestNewOrchestrator_RejectsConflictingSelection(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Aggregate.Threshold = 10_000

	_, err := NewOrchestrator(cfg, Sources{}, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, strategyconfig.ErrConflictingSelection))
}

func TestOrchestrator_CollectHistory(t *testing.T) {
	src := &fakeSnapshots{snaps: scenario()}
	o, err := NewOrchestrator(strategyconfig.Default(), Sources{
		Snapshots: src,
		Universes: fakeUniverse{universe: scenarioUniverse()},
		Prices:    fakePrices{},
	}, logger.Nop())
	require.NoError(t, err)

	got, err := o.CollectHistory(context.Background(), contracts.MarketTSE, contracts.ScopeRanked, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, src.limit)

	require.Len(t, got, 3)
	assert.Equal(t, "0056", got[0].Code)
	require.Len(t, got[0].Records, 5)
	assert.Equal(t, day(0), got[0].Records[0].Date)
	require.NotNil(t, got[0].Records[4].Price)
	assert.Nil(t, got[0].Records[0].Price)

	got, err = o.CollectHistory(context.Background(), contracts.MarketTSE, contracts.ScopeRanked, []string{"2330"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "台積電", got[0].Name)
}

func TestReportCache_MemoryOnly(t *testing.T) {
	c := NewReportCache(nil)
	ctx := context.Background()

	_, err := c.LatestReport(ctx, contracts.MarketOTC)
	assert.True(t, errors.Is(err, ErrReportNotFound))

	report := &contracts.Report{Market: contracts.MarketOTC, RunID: "r"}
	require.NoError(t, c.Publish(ctx, report))

	got, err := c.LatestReport(ctx, contracts.MarketOTC)
	require.NoError(t, err)
	assert.Same(t, report, got)
}
