package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/instflow/internal/brain"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data"
	"github.com/wonny/instflow/pkg/logger"
	"github.com/wonny/instflow/pkg/redis"
)

// HistoryCollector builds merged chart histories on demand
type HistoryCollector interface {
	CollectHistory(ctx context.Context, market contracts.Market, scope contracts.Scope, codes []string) ([]contracts.MergedHistory, error)
}

// FlowHandler serves the latest analysis of each market
// ⭐ SSOT: 수급 분석 API 핸들러는 이 구조체에서만
type FlowHandler struct {
	reports contracts.ReportReader
	history HistoryCollector // optional
	cache   *redis.Cache     // optional
	logger  *logger.Logger
}

// NewFlowHandler creates a new flow handler
func NewFlowHandler(reports contracts.ReportReader, history HistoryCollector, cache *redis.Cache, log *logger.Logger) *FlowHandler {
	return &FlowHandler{
		reports: reports,
		history: history,
		cache:   cache,
		logger:  log,
	}
}

// report resolves {market} and loads its latest report, answering the error itself
func (h *FlowHandler) report(w http.ResponseWriter, r *http.Request) (*contracts.Report, bool) {
	market, err := contracts.ParseMarket(mux.Vars(r)["market"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	report, err := h.reports.LatestReport(r.Context(), market)
	if errors.Is(err, brain.ErrReportNotFound) {
		respondError(w, http.StatusNotFound, "No report for market "+string(market))
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).WithField("market", string(market)).Error("Failed to load report")
		respondError(w, http.StatusInternalServerError, "Failed to load report")
		return nil, false
	}
	return report, true
}

// GetReport returns the whole latest report
// GET /api/flow/{market}/report
func (h *FlowHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetLeaderboard returns one aggregate leaderboard
// GET /api/flow/{market}/leaderboard/{side}
func (h *FlowHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	side := contracts.Side(strings.ToLower(mux.Vars(r)["side"]))
	if side != contracts.SideBuy && side != contracts.SideSell {
		respondError(w, http.StatusBadRequest, "Invalid side (valid: buy, sell)")
		return
	}

	report, ok := h.report(w, r)
	if !ok {
		return
	}

	board := report.Aggregate.Buy
	if side == contracts.SideSell {
		board = report.Aggregate.Sell
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"market": report.Market,
		"as_of":  contracts.DateKey(report.AsOf),
		"days":   len(report.Aggregate.Days),
		"board":  board,
	})
}

// GetCrossListed returns the securities on both leaderboards
// GET /api/flow/{market}/crosslisted
func (h *FlowHandler) GetCrossListed(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"market":         report.Market,
		"as_of":          contracts.DateKey(report.AsOf),
		"cross_listings": report.Aggregate.CrossListings,
	})
}

// GetObservable returns new entrants and observables of the latest day
// GET /api/flow/{market}/observable?side=buy|sell
func (h *FlowHandler) GetObservable(w http.ResponseWriter, r *http.Request) {
	side := strings.ToLower(r.URL.Query().Get("side"))
	if side != "" && side != string(contracts.SideBuy) && side != string(contracts.SideSell) {
		respondError(w, http.StatusBadRequest, "Invalid side (valid: buy, sell)")
		return
	}

	report, ok := h.report(w, r)
	if !ok {
		return
	}

	c := &report.Classification
	resp := map[string]interface{}{
		"market": report.Market,
		"date":   contracts.DateKey(c.Date),
	}
	if side == "" || side == string(contracts.SideBuy) {
		resp["new_buy"] = c.NewBuy
		resp["observable_buy"] = c.Observables(contracts.SideBuy)
	}
	if side == "" || side == string(contracts.SideSell) {
		resp["new_sell"] = c.NewSell
		resp["observable_sell"] = c.Observables(contracts.SideSell)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetRankings returns the daily top lists of one day, latest when date is omitted
// GET /api/flow/{market}/rankings?date=YYYY-MM-DD
func (h *FlowHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	for i := range report.Rankings {
		rk := &report.Rankings[i]
		if date == "" || contracts.DateKey(rk.Date) == date {
			respondJSON(w, http.StatusOK, rk)
			return
		}
	}
	respondError(w, http.StatusNotFound, "No ranking for date "+date)
}

// GetHistory returns the merged chart history of one security.
// The code is normalized first, so /history/56 serves 0056.
// GET /api/flow/{market}/history/{code}
func (h *FlowHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "History collection not configured")
		return
	}

	vars := mux.Vars(r)
	market, err := contracts.ParseMarket(vars["market"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	code := s0_data.NormalizeCode(vars["code"])
	if code == "" {
		respondError(w, http.StatusBadRequest, "Invalid code")
		return
	}
	ctx := r.Context()

	if h.cache != nil {
		var cached contracts.MergedHistory
		if found, err := h.cache.Get(ctx, redis.HistoryKey(string(market), code), &cached); err == nil && found {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	histories, err := h.history.CollectHistory(ctx, market, contracts.ScopeRanked, []string{code})
	if errors.Is(err, brain.ErrNoSnapshots) {
		respondError(w, http.StatusNotFound, "No flow data for market "+string(market))
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to collect history")
		respondError(w, http.StatusInternalServerError, "Failed to collect history")
		return
	}
	if len(histories) == 0 || len(histories[0].Records) == 0 {
		respondError(w, http.StatusNotFound, "No history for "+code)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, redis.HistoryKey(string(market), code), histories[0], redis.TTLShort); err != nil {
			h.logger.WithError(err).Warn("Failed to cache history")
		}
	}
	respondJSON(w, http.StatusOK, histories[0])
}
