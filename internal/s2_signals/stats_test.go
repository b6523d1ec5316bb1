package s2_signals

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

func engine() *StatsEngine {
	return NewStatsEngine(strategyconfig.Default().Statistics, logger.Nop())
}

func repeat(v int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestStatsEngine_Outlier(t *testing.T) {
	// 35 identical days with one perturbation so the std is nonzero
	basis := repeat(100, 35)
	basis[10] = 110
	s := series("2330", basis, 0)

	mean, std := meanStd(series("x", basis[1:], basis[0]).Points)
	s.Points[len(s.Points)-1].NetVolume = int64(mean + 10*std + 1)

	got, ok := engine().Compute(s)
	require.True(t, ok)
	assert.True(t, got.Anomalous)
	assert.GreaterOrEqual(t, got.ZScore, 10.0)
	assert.Equal(t, 35, got.Basis)
}

func TestStatsEngine_SigmaBoundary(t *testing.T) {
	// alternating 0/20 over 40 days: mean 10, std 10
	basis := make([]int64, 40)
	for i := range basis {
		basis[i] = int64(i%2) * 20
	}

	tests := []struct {
		name      string
		latest    int64
		z         float64
		anomalous bool
	}{
		{"below threshold", 34, 2.4, false},
		{"at threshold", 35, 2.5, true},
		{"above threshold", 40, 3.0, true},
		{"at threshold on the sell side", -15, 2.5, true},
		{"just below on the sell side", -14, 2.4, false},
		{"at the mean", 10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine().Compute(series("2330", basis, tt.latest))
			require.True(t, ok)
			assert.InDelta(t, 10.0, got.Mean, 1e-9)
			assert.InDelta(t, 10.0, got.Std, 1e-9)
			assert.InDelta(t, tt.z, got.ZScore, 1e-9)
			assert.Equal(t, tt.anomalous, got.Anomalous)
		})
	}
}

func TestStatsEngine_ConstantSeries(t *testing.T) {
	got, ok := engine().Compute(series("2330", repeat(500, 40), 500))
	require.True(t, ok)
	assert.Zero(t, got.Std)
	assert.Zero(t, got.ZScore)
	assert.False(t, got.Anomalous)

	// std 0 with a different latest value still yields z 0
	got, ok = engine().Compute(series("2330", repeat(500, 40), 9000))
	require.True(t, ok)
	assert.Zero(t, got.ZScore)
	assert.False(t, got.Anomalous)
}

func TestStatsEngine_Insufficient(t *testing.T) {
	_, ok := engine().Compute(series("2330", repeat(1, 29), 1))
	assert.False(t, ok, "29 basis points")

	_, ok = engine().Compute(series("2330", repeat(1, 30), 1))
	assert.True(t, ok, "30 basis points")
}

func TestStatsEngine_WindowExcludesLatestAndOldest(t *testing.T) {
	// 70 basis days: the 10 oldest are huge and must fall outside the 60-day window
	basis := append(repeat(1_000_000, 10), make([]int64, 60)...)
	for i := 10; i < 70; i++ {
		basis[i] = int64(i % 2) // alternating 0/1: mean 0.5, std 0.5
	}
	got, ok := engine().Compute(series("2330", basis, 3))
	require.True(t, ok)

	assert.Equal(t, 60, got.Basis)
	assert.InDelta(t, 0.5, got.Mean, 1e-9)
	assert.InDelta(t, 0.5, got.Std, 1e-9)
	assert.InDelta(t, 5.0, got.ZScore, 1e-9)
	assert.True(t, got.Anomalous)
	assert.Equal(t, int64(3), got.Latest)
}

func TestStatsEngine_ComputeAll(t *testing.T) {
	h := &contracts.History{Series: map[string]*contracts.HistorySeries{
		"2330": series("2330", repeat(5, 40), 5),
		"0056": series("0056", repeat(5, 5), 5),
		"2603": series("2603", append(repeat(0, 39), 2), -100),
	}}

	stats, insufficient, err := engine().ComputeAll(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, 1, insufficient)
	assert.Len(t, stats, 2)
	assert.NotContains(t, stats, "0056")
	assert.True(t, stats["2603"].Anomalous)
	assert.False(t, math.IsNaN(stats["2330"].ZScore))
}
