package s2_signals

import (
	"sort"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

// Ranker extracts the daily top lists
// ⭐ SSOT: 일별 순위 추출은 여기서만
type Ranker struct {
	config strategyconfig.Ranking
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(config strategyconfig.Ranking, log *logger.Logger) *Ranker {
	return &Ranker{
		config: config,
		logger: log.Component("ranker"),
	}
}

// Rank builds the top lists of one snapshot. Only eligible codes are ranked;
// zero volume is in neither direction. Ties break by code ascending.
func (r *Ranker) Rank(snap *contracts.DailySnapshot, universe *contracts.Universe) *contracts.RankingResult {
	var buys, sells []contracts.RankedEntry
	for _, rec := range snap.Records {
		if !universe.Eligible(rec.Code) || rec.NetVolume == 0 {
			continue
		}

		entry := contracts.RankedEntry{
			Code:      rec.Code,
			Name:      rec.Name,
			Sector:    universe.Sector(rec.Code),
			NetVolume: rec.NetVolume,
			Date:      snap.Date,
		}
		if entry.Name == "" {
			entry.Name = universe.Name(rec.Code)
		}
		if entry.Sector == "" {
			entry.Sector = rec.Sector
		}

		if rec.NetVolume > 0 {
			buys = append(buys, entry)
		} else {
			sells = append(sells, entry)
		}
	}

	sort.Slice(buys, func(i, j int) bool {
		if buys[i].NetVolume != buys[j].NetVolume {
			return buys[i].NetVolume > buys[j].NetVolume
		}
		return buys[i].Code < buys[j].Code
	})
	sort.Slice(sells, func(i, j int) bool {
		if sells[i].NetVolume != sells[j].NetVolume {
			return sells[i].NetVolume < sells[j].NetVolume
		}
		return sells[i].Code < sells[j].Code
	})

	result := &contracts.RankingResult{
		Date:        snap.Date,
		Buy:         top(buys, r.config.BuyCount),
		Sell:        top(sells, r.config.SellCount),
		FundBuy:     top(funds(buys, universe), r.config.FundCount),
		FundSell:    top(funds(sells, universe), r.config.FundCount),
		TrackedBuy:  top(buys, r.config.TrackedCount),
		TrackedSell: top(sells, r.config.TrackedCount),
	}

	r.logger.WithFields(map[string]interface{}{
		"date":      contracts.DateKey(snap.Date),
		"buy_pool":  len(buys),
		"sell_pool": len(sells),
		"buy":       len(result.Buy),
		"sell":      len(result.Sell),
	}).Debug("daily ranking extracted")

	return result
}

// RankAll ranks every snapshot, keeping the input order
func (r *Ranker) RankAll(snaps []contracts.DailySnapshot, universe *contracts.Universe) []contracts.RankingResult {
	out := make([]contracts.RankingResult, 0, len(snaps))
	for i := range snaps {
		out = append(out, *r.Rank(&snaps[i], universe))
	}
	return out
}

// top copies the first n entries and numbers them from 1
func top(entries []contracts.RankedEntry, n int) []contracts.RankedEntry {
	if n > len(entries) {
		n = len(entries)
	}
	if n < 0 {
		n = 0
	}
	out := make([]contracts.RankedEntry, n)
	copy(out, entries[:n])
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func funds(entries []contracts.RankedEntry, universe *contracts.Universe) []contracts.RankedEntry {
	var out []contracts.RankedEntry
	for _, e := range entries {
		if universe.IsFund(e.Code) {
			out = append(out, e)
		}
	}
	return out
}
