package contracts

import "time"

// RankedEntry is one row of a daily top list
type RankedEntry struct {
	Rank      int       `json:"rank"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector,omitempty"`
	NetVolume int64     `json:"net_volume"`
	Date      time.Time `json:"date"`
}

// RankingResult holds the top lists of one trading day.
// Buy lists only hold positive volumes, sell lists only negative ones.
type RankingResult struct {
	Date        time.Time     `json:"date"`
	Buy         []RankedEntry `json:"buy"`          // top N1 by volume desc
	Sell        []RankedEntry `json:"sell"`         // top N2 by volume asc
	FundBuy     []RankedEntry `json:"fund_buy"`     // ETF top 10
	FundSell    []RankedEntry `json:"fund_sell"`    // ETF top 10
	TrackedBuy  []RankedEntry `json:"tracked_buy"`  // top 20, feeds new-entrant and aggregate
	TrackedSell []RankedEntry `json:"tracked_sell"` // top 20
}

// Tracked returns the tracked list of a side
func (r *RankingResult) Tracked(side Side) []RankedEntry {
	if side == SideSell {
		return r.TrackedSell
	}
	return r.TrackedBuy
}

// Top returns the full top-N list of a side
func (r *RankingResult) Top(side Side) []RankedEntry {
	if side == SideSell {
		return r.Sell
	}
	return r.Buy
}

// CodeSet collects the codes of entries
func CodeSet(entries []RankedEntry) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.Code] = struct{}{}
	}
	return set
}
