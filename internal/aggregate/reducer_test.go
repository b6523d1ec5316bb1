package aggregate

import (
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
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func entry(code string, v int64, d time.Time) contracts.RankedEntry {
	return contracts.RankedEntry{Code: code, Name: "n" + code, NetVolume: v, Date: d}
}

// ranked builds a ranking whose tracked lists are buy and sell as given
func ranked(d time.Time, buy, sell map[string]int64) contracts.RankingResult {
	r := contracts.RankingResult{Date: d}
	for code, v := range buy {
		r.TrackedBuy = append(r.TrackedBuy, entry(code, v, d))
	}
	for code, v := range sell {
		r.TrackedSell = append(r.TrackedSell, entry(code, v, d))
	}
	r.Buy, r.Sell = r.TrackedBuy, r.TrackedSell
	return r
}

func topN(n int) strategyconfig.Aggregate {
	a := strategyconfig.Default().Aggregate
	a.TopN = n
	return a
}

func threshold(v int64) strategyconfig.Aggregate {
	a := strategyconfig.Default().Aggregate
	a.Mode = string(contracts.SelectionThreshold)
	a.TopN = 0
	a.Threshold = v
	return a
}

func TestNewReducer_RejectsConflictingSelection(t *testing.T) {
	a := threshold(10_000)
	a.TopN = 50

	_, err := NewReducer(a, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, strategyconfig.ErrConflictingSelection))

	var verr strategyconfig.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestReduce_Leaderboards(t *testing.T) {
	// most recent first
	rankings := []contracts.RankingResult{
		ranked(day(4), map[string]int64{"2330": 100, "0056": 50}, map[string]int64{"2603": -300}),
		ranked(day(3), map[string]int64{"2330": 100}, map[string]int64{"0056": -20, "2603": -10}),
		ranked(day(2), map[string]int64{"2317": 150}, map[string]int64{"0056": -40}),
		ranked(day(1), map[string]int64{"0056": 30}, nil),
		ranked(day(0), map[string]int64{"9999": 1_000_000}, nil), // fifth day, still inside
		ranked(day(-1), map[string]int64{"8888": 1_000_000}, nil),
	}

	r, err := NewReducer(topN(100), logger.Nop())
	require.NoError(t, err)
	res, err := r.Reduce(Input{Rankings: rankings}, contracts.ScopeRanked)
	require.NoError(t, err)

	assert.Equal(t, day(4), res.AsOf)
	require.Len(t, res.Days, 5)
	assert.Equal(t, day(0), res.Days[0])

	buy := res.Buy.Entries
	require.Len(t, buy, 4)
	assert.Equal(t, []string{"9999", "2330", "2317", "0056"}, codesOf(buy))
	assert.Equal(t, int64(200), buy[1].Sum)
	assert.Equal(t, 2, buy[1].Appearances)
	assert.Equal(t, int64(80), buy[3].Sum, "no double counting")

	sell := res.Sell.Entries
	assert.Equal(t, []string{"2603", "0056"}, codesOf(sell))
	assert.Equal(t, int64(-310), sell[0].Sum)

	for _, e := range buy {
		assert.NotEqual(t, "8888", e.Code, "outside the window")
	}
}

func TestReduce_CrossListingIsIntersection(t *testing.T) {
	rankings := []contracts.RankingResult{
		ranked(day(4), map[string]int64{"0056": 900, "2330": 10}, map[string]int64{"2603": -5}),
		ranked(day(3), map[string]int64{"0056": 700}, map[string]int64{"2330": -30}),
		ranked(day(2), nil, map[string]int64{"0056": -200, "2603": -5}),
		ranked(day(1), map[string]int64{"0056": 600}, nil),
		ranked(day(0), map[string]int64{"0056": 500}, nil),
	}

	r, err := NewReducer(topN(100), logger.Nop())
	require.NoError(t, err)
	res, err := r.Reduce(Input{Rankings: rankings}, contracts.ScopeRanked)
	require.NoError(t, err)

	want := make(map[string]struct{})
	onSell := res.Sell.Codes()
	for code := range res.Buy.Codes() {
		if _, ok := onSell[code]; ok {
			want[code] = struct{}{}
		}
	}
	got := make(map[string]struct{})
	for _, cl := range res.CrossListings {
		got[cl.Code] = struct{}{}
	}
	assert.Equal(t, want, got)

	require.Len(t, res.CrossListings, 2)
	first := res.CrossListings[0]
	assert.Equal(t, "0056", first.Code, "ordered by net desc")
	assert.Equal(t, int64(2700), first.BuySum)
	assert.Equal(t, int64(-200), first.SellSum)
	assert.Equal(t, int64(2500), first.NetSum)
	assert.Equal(t, []string{"01", "02", "04", "05"}, first.BuyDays)
	assert.Equal(t, []string{"03"}, first.SellDays)
	assert.Equal(t, []contracts.DayDirection{
		{Date: day(0), Direction: contracts.DirectionBuy},
		{Date: day(1), Direction: contracts.DirectionBuy},
		{Date: day(2), Direction: contracts.DirectionSell},
		{Date: day(3), Direction: contracts.DirectionBuy},
		{Date: day(4), Direction: contracts.DirectionBuy},
	}, first.Timeline)

	second := res.CrossListings[1]
	assert.Equal(t, "2330", second.Code)
	assert.Equal(t, contracts.DirectionNeutral, second.Timeline[0].Direction)

	for _, e := range res.Buy.Entries {
		_, cross := got[e.Code]
		assert.Equal(t, cross, e.CrossListed, e.Code)
	}
	for _, e := range res.Sell.Entries {
		_, cross := got[e.Code]
		assert.Equal(t, cross, e.CrossListed, e.Code)
	}
}

func TestReduce_SelectionModes(t *testing.T) {
	rankings := []contracts.RankingResult{
		ranked(day(1), map[string]int64{"2330": 8_000, "2317": 3_000, "1101": 20}, map[string]int64{"2603": -12_000}),
		ranked(day(0), map[string]int64{"2330": 4_000}, map[string]int64{"2609": -9_999}),
	}

	tests := []struct {
		name     string
		config   strategyconfig.Aggregate
		wantBuy  []string
		wantSell []string
	}{
		{"threshold", threshold(10_000), []string{"2330"}, []string{"2603"}},
		{"top_n", topN(2), []string{"2330", "2317"}, []string{"2603", "2609"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReducer(tt.config, logger.Nop())
			require.NoError(t, err)
			res, err := r.Reduce(Input{Rankings: rankings}, contracts.ScopeRanked)
			require.NoError(t, err)

			assert.Equal(t, tt.wantBuy, codesOf(res.Buy.Entries))
			assert.Equal(t, tt.wantSell, codesOf(res.Sell.Entries))
			assert.Equal(t, tt.config.SelectionMode(), res.Buy.Mode)
		})
	}
}

func TestReduce_ScopeAll(t *testing.T) {
	history := &contracts.History{Days: map[string]map[string]int64{
		contracts.DateKey(day(1)): {"2330": 50, "1101": 7, "2603": -3},
		contracts.DateKey(day(0)): {"1101": 5, "2603": 0},
	}}
	rankings := []contracts.RankingResult{
		ranked(day(1), map[string]int64{"2330": 50}, nil),
		ranked(day(0), map[string]int64{"1101": 5}, nil),
	}
	universe := &contracts.Universe{Securities: map[string]contracts.Security{
		"2330": {Code: "2330", Name: "台積電", Sector: "半導體業"},
		"1101": {Code: "1101", Name: "台泥", Sector: "水泥工業"},
		"2603": {Code: "2603", Name: "長榮"},
	}}

	r, err := NewReducer(topN(100), logger.Nop())
	require.NoError(t, err)

	res, err := r.Reduce(Input{Rankings: rankings, History: history, Universe: universe}, contracts.ScopeAll)
	require.NoError(t, err)

	assert.Equal(t, []string{"2330", "1101"}, codesOf(res.Buy.Entries))
	assert.Equal(t, int64(12), res.Buy.Entries[1].Sum)
	assert.Equal(t, "台泥", res.Buy.Entries[1].Name)
	assert.Equal(t, "水泥工業", res.Buy.Entries[1].Sector)
	assert.Equal(t, []string{"2603"}, codesOf(res.Sell.Entries))

	only, err := r.Reduce(Input{Rankings: rankings, History: history, Universe: universe}, contracts.ScopeRanked)
	require.NoError(t, err)
	assert.Equal(t, []string{"2330", "1101"}, codesOf(only.Buy.Entries))
	assert.Equal(t, int64(5), only.Buy.Entries[1].Sum, "1101 was tracked on one day only")
	assert.Equal(t, contracts.ScopeRanked, only.Scope)
}

func TestReduce_Errors(t *testing.T) {
	r, err := NewReducer(topN(10), logger.Nop())
	require.NoError(t, err)

	_, err = r.Reduce(Input{}, contracts.Scope("everything"))
	assert.Error(t, err)

	_, err = r.Reduce(Input{}, contracts.ScopeAll)
	assert.Error(t, err)

	res, err := r.Reduce(Input{}, contracts.ScopeRanked)
	require.NoError(t, err)
	assert.Empty(t, res.Buy.Entries)
	assert.Empty(t, res.CrossListings)
}

func TestReduce_DuplicateDayCountedOnce(t *testing.T) {
	rankings := []contracts.RankingResult{
		ranked(day(0), map[string]int64{"2330": 100}, nil),
		ranked(day(0), map[string]int64{"2330": 100}, nil),
	}
	r, err := NewReducer(topN(10), logger.Nop())
	require.NoError(t, err)

	res, err := r.Reduce(Input{Rankings: rankings}, contracts.ScopeRanked)
	require.NoError(t, err)
	require.Len(t, res.Buy.Entries, 1)
	assert.Equal(t, int64(100), res.Buy.Entries[0].Sum)
	assert.Equal(t, 1, res.Buy.Entries[0].Appearances)
}

func TestReduce_EmptyTrackedDayTakesNoSlot(t *testing.T) {
	cfg := topN(10)
	cfg.Days = 2
	rankings := []contracts.RankingResult{
		ranked(day(3), map[string]int64{"2330": 100}, nil),
		ranked(day(2), nil, nil),
		ranked(day(1), map[string]int64{"2330": 50}, nil),
		ranked(day(0), map[string]int64{"2330": 7}, nil),
	}
	r, err := NewReducer(cfg, logger.Nop())
	require.NoError(t, err)

	res, err := r.Reduce(Input{Rankings: rankings}, contracts.ScopeRanked)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(1), day(3)}, res.Days)
	require.Len(t, res.Buy.Entries, 1)
	assert.Equal(t, int64(150), res.Buy.Entries[0].Sum)
	assert.Equal(t, 2, res.Buy.Entries[0].Appearances)
}

func TestReduce_OnlyEmptyTrackedDays(t *testing.T) {
	r, err := NewReducer(topN(10), logger.Nop())
	require.NoError(t, err)

	res, err := r.Reduce(Input{Rankings: []contracts.RankingResult{ranked(day(0), nil, nil)}}, contracts.ScopeRanked)
	require.NoError(t, err)
	assert.True(t, res.AsOf.IsZero())
	assert.Empty(t, res.Days)
	assert.Empty(t, res.Buy.Entries)
}

func codesOf(entries []contracts.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Code
	}
	return out
}
