package s0_data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/instflow/internal/contracts"
)

func i64(v int64) *int64 { return &v }

func TestIngest(t *testing.T) {
	date := time.Date(2024, 7, 10, 15, 30, 0, 0, time.UTC)
	rows := []RawRow{
		{Code: `="0050"`, Name: "元大台灣50", NetShares: i64(2_500_000)},
		{Code: "56", Name: "元大高股息", NetShares: i64(-999)},
		{Code: "", Name: "blank", NetShares: i64(1_000)},
		{Code: "2330", Name: "台積電", NetShares: i64(10_000), Foreign: i64(8_000), Trust: i64(1_000), Dealer: i64(1_000)},
		{Code: "2603", Name: "長榮"},
		{Code: "0050", Name: "元大台灣50", NetShares: i64(3_000_000)},
	}

	res := Ingest(contracts.MarketTSE, date, rows)

	assert.Equal(t, 6, res.RawRecords)
	assert.Equal(t, 1, res.EmptyCodes)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, []string{"0050"}, res.DuplicateCodes)

	snap := res.Snapshot
	assert.Equal(t, contracts.MarketTSE, snap.Market)
	assert.Equal(t, time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC), snap.Date)
	require.Len(t, snap.Records, 3)

	etf, ok := snap.Lookup("0050")
	require.True(t, ok)
	assert.Equal(t, int64(3000), etf.NetVolume, "last write wins")
	assert.Nil(t, etf.Components)

	small, ok := snap.Lookup("0056")
	require.True(t, ok)
	assert.Equal(t, int64(0), small.NetVolume)

	tsmc, ok := snap.Lookup("2330")
	require.True(t, ok)
	require.NotNil(t, tsmc.Components)
	assert.Equal(t, int64(8), tsmc.Components.Foreign)
	assert.Equal(t, snap.Date, tsmc.Date)
}

func TestIngestEmpty(t *testing.T) {
	res := Ingest(contracts.MarketOTC, time.Now(), nil)
	assert.Empty(t, res.Snapshot.Records)
	assert.Zero(t, res.Duplicates)
}
