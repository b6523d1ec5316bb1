package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/instflow/internal/api/handlers"
	"github.com/wonny/instflow/internal/brain"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/pkg/logger"
	"github.com/wonny/instflow/pkg/metrics"
)

var asOf = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

type fakeHistory struct {
	histories []contracts.MergedHistory
	err       error
	codes     []string
}

func (f *fakeHistory) CollectHistory(_ context.Context, _ contracts.Market, _ contracts.Scope, codes []string) ([]contracts.MergedHistory, error) {
	f.codes = codes
	return f.histories, f.err
}

func newTestRouter(t *testing.T, history handlers.HistoryCollector) http.Handler {
	t.Helper()

	cache := brain.NewReportCache(nil)
	require.NoError(t, cache.Publish(context.Background(), &contracts.Report{
		Market: contracts.MarketTSE,
		AsOf:   asOf,
		Rankings: []contracts.RankingResult{
			{Date: asOf, Buy: []contracts.RankedEntry{{Rank: 1, Code: "0056", NetVolume: 900}}},
			{Date: asOf.AddDate(0, 0, -3), Buy: []contracts.RankedEntry{{Rank: 1, Code: "2330", NetVolume: 50}}},
		},
		Classification: contracts.Classification{
			Date:    asOf,
			NewBuy:  []string{"2330"},
			NewSell: []string{},
			ObservableBuy: map[string]contracts.Observation{
				"0056": {Code: "0056", Reasons: []contracts.Reason{contracts.ReasonPersistentBuy}},
			},
			ObservableSell: map[string]contracts.Observation{},
		},
		Aggregate: contracts.AggregateResult{
			Days:          []time.Time{asOf},
			Buy:           contracts.Leaderboard{Side: contracts.SideBuy, Entries: []contracts.LeaderboardEntry{{Code: "0056", Sum: 900}}},
			Sell:          contracts.Leaderboard{Side: contracts.SideSell, Entries: []contracts.LeaderboardEntry{{Code: "2603", Sum: -40}}},
			CrossListings: []contracts.CrossListing{{Code: "0056", NetSum: 860}},
		},
	}))

	h := handlers.NewFlowHandler(cache, history, nil, logger.Nop())
	return NewRouter(h, metrics.New(prometheus.NewRegistry()), logger.Nop())
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRouter_Health(t *testing.T) {
	rec, body := get(t, newTestRouter(t, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Metrics(t *testing.T) {
	rec, _ := get(t, newTestRouter(t, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Report(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"latest report", "/api/flow/tse/report", http.StatusOK},
		{"unknown market", "/api/flow/nyse/report", http.StatusBadRequest},
		{"market without report", "/api/flow/OTC/report", http.StatusNotFound},
		{"buy leaderboard", "/api/flow/TSE/leaderboard/buy", http.StatusOK},
		{"invalid side", "/api/flow/TSE/leaderboard/up", http.StatusBadRequest},
		{"cross listed", "/api/flow/TSE/crosslisted", http.StatusOK},
		{"observable", "/api/flow/TSE/observable", http.StatusOK},
		{"observable invalid side", "/api/flow/TSE/observable?side=flat", http.StatusBadRequest},
		{"rankings latest", "/api/flow/TSE/rankings", http.StatusOK},
		{"rankings unknown date", "/api/flow/TSE/rankings?date=2020-01-01", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := get(t, router, tt.path)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_LeaderboardBody(t *testing.T) {
	_, body := get(t, newTestRouter(t, nil), "/api/flow/TSE/leaderboard/sell")

	assert.Equal(t, "2024-09-02", body["as_of"])
	board := body["board"].(map[string]interface{})
	entries := board["entries"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "2603", entries[0].(map[string]interface{})["code"])
}

func TestRouter_ObservableSide(t *testing.T) {
	_, body := get(t, newTestRouter(t, nil), "/api/flow/TSE/observable?side=buy")

	assert.Contains(t, body, "observable_buy")
	assert.NotContains(t, body, "observable_sell")
	assert.Equal(t, []interface{}{"2330"}, body["new_buy"])
}

func TestRouter_RankingsByDate(t *testing.T) {
	_, body := get(t, newTestRouter(t, nil), "/api/flow/TSE/rankings?date=2024-08-30")
	buy := body["buy"].([]interface{})
	assert.Equal(t, "2330", buy[0].(map[string]interface{})["code"])
}

func TestRouter_History(t *testing.T) {
	net := int64(5)
	history := &fakeHistory{histories: []contracts.MergedHistory{{
		Code:    "2330",
		Records: []contracts.MergedRecord{{Date: asOf, NetVolume: &net}},
	}}}

	rec, body := get(t, newTestRouter(t, history), "/api/flow/TSE/history/2330")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2330", body["code"])
	assert.Equal(t, []string{"2330"}, history.codes)

	rec, _ = get(t, newTestRouter(t, nil), "/api/flow/TSE/history/2330")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	missing := &fakeHistory{err: errors.Join(errors.New("TSE"), brain.ErrNoSnapshots)}
	rec, _ = get(t, newTestRouter(t, missing), "/api/flow/TSE/history/2330")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	empty := &fakeHistory{histories: []contracts.MergedHistory{{Code: "2330"}}}
	rec, _ = get(t, newTestRouter(t, empty), "/api/flow/TSE/history/2330")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_HistoryNormalizesCode(t *testing.T) {
	net := int64(600)
	history := &fakeHistory{histories: []contracts.MergedHistory{{
		Code:    "0056",
		Records: []contracts.MergedRecord{{Date: asOf, NetVolume: &net}},
	}}}
	router := newTestRouter(t, history)

	rec, body := get(t, router, "/api/flow/TSE/history/56")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0056", body["code"])
	assert.Equal(t, []string{"0056"}, history.codes)

	history.codes = nil
	rec, _ = get(t, router, "/api/flow/TSE/history/%22%22")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, history.codes, "empty code never reaches the collector")
}
