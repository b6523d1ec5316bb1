package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

func day(n int) time.Time {
	return time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

type fakePrices struct {
	batch *contracts.PriceBatch
	err   error
	codes []string
	since time.Time
}

func (f *fakePrices) LoadPrices(_ context.Context, _ contracts.Market, codes []string, since time.Time) (*contracts.PriceBatch, error) {
	f.codes, f.since = codes, since
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

func snap(d time.Time, recs ...contracts.SecurityRecord) contracts.DailySnapshot {
	for i := range recs {
		recs[i].Date = d
	}
	return contracts.DailySnapshot{Market: contracts.MarketTSE, Date: d, Records: recs}
}

func TestCollect_UnionJoin(t *testing.T) {
	snaps := []contracts.DailySnapshot{
		snap(day(2), contracts.SecurityRecord{Code: "0056", Name: "元大高股息", NetVolume: 900,
			Components: &contracts.FlowComponents{Foreign: 600, Trust: 200, Dealer: 100}}),
		snap(day(1), contracts.SecurityRecord{Code: "0056", Name: "元大高股息", NetVolume: -200}),
		snap(day(0), contracts.SecurityRecord{Code: "2330", NetVolume: 5}),
	}
	prices := &fakePrices{batch: &contracts.PriceBatch{Prices: map[string][]contracts.PricePoint{
		"0056": {
			{Date: day(3), Close: 37.5},
			{Date: day(1), Close: 36.1},
		},
		"9999": {{Date: day(1), Close: 1}},
	}}}

	c := NewCollector(prices, strategyconfig.Default().Collector, logger.Nop())
	got, err := c.Collect(context.Background(), contracts.MarketTSE, snaps, []string{"0056"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	h := got[0]
	assert.Equal(t, "0056", h.Code)
	assert.Equal(t, "元大高股息", h.Name)
	require.Len(t, h.Records, 3)

	assert.Equal(t, day(1), h.Records[0].Date)
	require.NotNil(t, h.Records[0].NetVolume)
	assert.Equal(t, int64(-200), *h.Records[0].NetVolume)
	require.NotNil(t, h.Records[0].Price)
	assert.InDelta(t, 36.1, h.Records[0].Price.Close, 1e-9)

	assert.Equal(t, day(2), h.Records[1].Date)
	assert.Nil(t, h.Records[1].Price, "flow without price still recorded")
	require.NotNil(t, h.Records[1].Components)
	assert.Equal(t, int64(200), h.Records[1].Components.Trust)

	assert.Equal(t, day(3), h.Records[2].Date)
	assert.Nil(t, h.Records[2].NetVolume, "price without flow still recorded")

	assert.Equal(t, []string{"0056"}, prices.codes)
}

func TestCollect_CapAndSince(t *testing.T) {
	var snaps []contracts.DailySnapshot
	for i := 0; i < 10; i++ {
		snaps = append(snaps, snap(day(i), contracts.SecurityRecord{Code: "2330", NetVolume: int64(i)}))
	}

	cfg := strategyconfig.Collector{MaxDays: 4, Scope: string(contracts.ScopeRanked)}
	got, err := NewCollector(nil, cfg, logger.Nop()).Collect(context.Background(), contracts.MarketTSE, snaps, []string{"2330"})
	require.NoError(t, err)
	require.Len(t, got[0].Records, 4)
	assert.Equal(t, day(6), got[0].Records[0].Date)
	assert.Equal(t, day(9), got[0].Records[3].Date)

	cfg = strategyconfig.Collector{MaxDays: 100, Since: contracts.DateKey(day(8))}
	prices := &fakePrices{batch: &contracts.PriceBatch{}}
	got, err = NewCollector(prices, cfg, logger.Nop()).Collect(context.Background(), contracts.MarketTSE, snaps, []string{"2330"})
	require.NoError(t, err)
	assert.Len(t, got[0].Records, 2)
	assert.Equal(t, day(8), prices.since)
}

func TestCollect_PriceSourceFailureIsNotFatal(t *testing.T) {
	snaps := []contracts.DailySnapshot{snap(day(0), contracts.SecurityRecord{Code: "2330", NetVolume: 1})}
	prices := &fakePrices{err: errors.New("price directory missing")}

	got, err := NewCollector(prices, strategyconfig.Default().Collector, logger.Nop()).
		Collect(context.Background(), contracts.MarketTSE, snaps, []string{"2330", "1101"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1101", got[0].Code)
	assert.Empty(t, got[0].Records)
	assert.Len(t, got[1].Records, 1)
}

func TestTargets(t *testing.T) {
	latest := &contracts.RankingResult{
		Buy:  []contracts.RankedEntry{{Code: "2330"}, {Code: "0056"}},
		Sell: []contracts.RankedEntry{{Code: "2603"}, {Code: "0056"}},
	}
	snaps := []contracts.DailySnapshot{
		snap(day(1), contracts.SecurityRecord{Code: "2330"}, contracts.SecurityRecord{Code: "1101"}),
		snap(day(0), contracts.SecurityRecord{Code: "9999"}, contracts.SecurityRecord{Code: "2603"}),
	}
	universe := &contracts.Universe{Securities: map[string]contracts.Security{
		"2330": {Code: "2330"}, "1101": {Code: "1101"}, "2603": {Code: "2603"},
	}}
	c := NewCollector(nil, strategyconfig.Default().Collector, logger.Nop())

	got, err := c.Targets(contracts.ScopeRanked, latest, snaps, universe)
	require.NoError(t, err)
	assert.Equal(t, []string{"0056", "2330", "2603"}, got)

	got, err = c.Targets(contracts.ScopeAll, latest, snaps, universe)
	require.NoError(t, err)
	assert.Equal(t, []string{"1101", "2330", "2603"}, got)

	got, err = c.Targets(contracts.ScopeRanked, nil, snaps, universe)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.Targets(contracts.Scope("global"), latest, snaps, universe)
	assert.Error(t, err)
}
