package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

// Reducer collapses the recent daily lists into buy/sell leaderboards
// and reconciles the codes found on both.
// ⭐ SSOT: 누적 순위(리더보드) 계산은 여기서만
type Reducer struct {
	config strategyconfig.Aggregate
	logger *logger.Logger
}

// NewReducer validates the selection parameters before any computation
func NewReducer(config strategyconfig.Aggregate, log *logger.Logger) (*Reducer, error) {
	if err := strategyconfig.ValidateAggregate(config); err != nil {
		return nil, fmt.Errorf("aggregate reducer: %w", err)
	}
	return &Reducer{
		config: config,
		logger: log.Component("aggregate"),
	}, nil
}

// Input is everything the reducer reads. Rankings are most recent first.
// History is only consulted with ScopeAll.
type Input struct {
	Rankings []contracts.RankingResult
	History  *contracts.History
	Universe *contracts.Universe
}

// tally accumulates one side of one code
type tally struct {
	code        string
	name        string
	sector      string
	sum         int64
	appearances int
	dates       map[string]time.Time
}

type book map[string]*tally

func (b book) add(code, name, sector string, date time.Time, volume int64) {
	t, ok := b[code]
	if !ok {
		t = &tally{code: code, dates: make(map[string]time.Time)}
		b[code] = t
	}
	if t.name == "" {
		t.name = name
	}
	if t.sector == "" {
		t.sector = sector
	}
	t.sum += volume
	t.appearances++
	t.dates[contracts.DateKey(date)] = date
}

// Reduce runs over the most recent config.Days ranked days.
// scope decides whether only the tracked lists or every eligible record contributes.
func (r *Reducer) Reduce(in Input, scope contracts.Scope) (*contracts.AggregateResult, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("aggregate reducer: invalid scope %q", scope)
	}
	if scope == contracts.ScopeAll && in.History == nil {
		return nil, fmt.Errorf("aggregate reducer: scope all needs accumulated history")
	}

	result := &contracts.AggregateResult{
		Scope:         scope,
		Buy:           contracts.Leaderboard{Side: contracts.SideBuy, Mode: r.config.SelectionMode(), Entries: []contracts.LeaderboardEntry{}},
		Sell:          contracts.Leaderboard{Side: contracts.SideSell, Mode: r.config.SelectionMode(), Entries: []contracts.LeaderboardEntry{}},
		CrossListings: []contracts.CrossListing{},
	}

	days := r.window(in.Rankings)
	if len(days) == 0 {
		return result, nil
	}
	result.AsOf = days[0].Date

	names := make(map[string]string)
	for i := range days {
		for _, e := range days[i].Buy {
			names[e.Code] = e.Name
		}
		for _, e := range days[i].Sell {
			names[e.Code] = e.Name
		}
	}
	nameOf := func(code, fallback string) string {
		if fallback != "" {
			return fallback
		}
		if n := names[code]; n != "" {
			return n
		}
		return in.Universe.Name(code)
	}

	buys, sells := make(book), make(book)
	for i := range days {
		d := &days[i]
		result.Days = append(result.Days, d.Date)

		if scope == contracts.ScopeRanked {
			for _, e := range d.TrackedBuy {
				buys.add(e.Code, nameOf(e.Code, e.Name), sectorOf(in.Universe, e), d.Date, e.NetVolume)
			}
			for _, e := range d.TrackedSell {
				sells.add(e.Code, nameOf(e.Code, e.Name), sectorOf(in.Universe, e), d.Date, e.NetVolume)
			}
			continue
		}

		for code, v := range in.History.Days[contracts.DateKey(d.Date)] {
			switch {
			case v > 0:
				buys.add(code, nameOf(code, ""), in.Universe.Sector(code), d.Date, v)
			case v < 0:
				sells.add(code, nameOf(code, ""), in.Universe.Sector(code), d.Date, v)
			}
		}
	}
	sort.Slice(result.Days, func(i, j int) bool { return result.Days[i].Before(result.Days[j]) })

	result.Buy.Entries = r.selectEntries(buys, contracts.SideBuy)
	result.Sell.Entries = r.selectEntries(sells, contracts.SideSell)
	result.CrossListings = r.crossList(result, buys, sells)

	r.logger.WithFields(map[string]interface{}{
		"as_of":        contracts.DateKey(result.AsOf),
		"days":         len(result.Days),
		"scope":        string(scope),
		"mode":         r.config.Mode,
		"buy":          len(result.Buy.Entries),
		"sell":         len(result.Sell.Entries),
		"cross_listed": len(result.CrossListings),
	}).Info("aggregate reduced")

	return result, nil
}

// window picks the most recent config.Days rankings with distinct dates.
// A day without any tracked entry was never captured and takes no slot.
func (r *Reducer) window(rankings []contracts.RankingResult) []contracts.RankingResult {
	seen := make(map[string]struct{})
	var out []contracts.RankingResult
	for _, rk := range rankings {
		key := contracts.DateKey(rk.Date)
		if len(rk.TrackedBuy) == 0 && len(rk.TrackedSell) == 0 {
			r.logger.WithField("date", key).Debug("ranking day without tracked entries skipped")
			continue
		}
		if _, dup := seen[key]; dup {
			r.logger.WithField("date", key).Warn("duplicate ranking day ignored")
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rk)
		if len(out) == r.config.Days {
			break
		}
	}
	return out
}

// selectEntries keeps positive sums on the buy side and negative ones on the sell side,
// orders them and applies the configured selection mode
func (r *Reducer) selectEntries(b book, side contracts.Side) []contracts.LeaderboardEntry {
	entries := make([]contracts.LeaderboardEntry, 0, len(b))
	for _, t := range b {
		if (side == contracts.SideBuy && t.sum <= 0) || (side == contracts.SideSell && t.sum >= 0) {
			continue
		}
		if r.config.SelectionMode() == contracts.SelectionThreshold && abs(t.sum) < r.config.Threshold {
			continue
		}
		entries = append(entries, contracts.LeaderboardEntry{
			Code:        t.code,
			Name:        t.name,
			Sector:      t.sector,
			Sum:         t.sum,
			Appearances: t.appearances,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Sum != entries[j].Sum {
			if side == contracts.SideBuy {
				return entries[i].Sum > entries[j].Sum
			}
			return entries[i].Sum < entries[j].Sum
		}
		return entries[i].Code < entries[j].Code
	})

	if r.config.SelectionMode() == contracts.SelectionTopN && len(entries) > r.config.TopN {
		entries = entries[:r.config.TopN]
	}
	return entries
}

// crossList builds the reconciliation of codes on both boards and flags them
func (r *Reducer) crossList(result *contracts.AggregateResult, buys, sells book) []contracts.CrossListing {
	onSell := result.Sell.Codes()

	timeline := result.Days
	if len(timeline) > r.config.TimelineDays {
		timeline = timeline[len(timeline)-r.config.TimelineDays:]
	}

	out := []contracts.CrossListing{}
	both := make(map[string]struct{})
	for i, e := range result.Buy.Entries {
		if _, ok := onSell[e.Code]; !ok {
			continue
		}
		result.Buy.Entries[i].CrossListed = true
		both[e.Code] = struct{}{}

		b, s := buys[e.Code], sells[e.Code]
		cl := contracts.CrossListing{
			Code:      e.Code,
			Name:      e.Name,
			Sector:    e.Sector,
			BuyDates:  sortedDates(b.dates),
			SellDates: sortedDates(s.dates),
			BuySum:    b.sum,
			SellSum:   s.sum,
			NetSum:    b.sum + s.sum,
		}
		cl.BuyDays = dayOfMonth(cl.BuyDates)
		cl.SellDays = dayOfMonth(cl.SellDates)

		for _, d := range timeline {
			key := contracts.DateKey(d)
			dir := contracts.DirectionNeutral
			if _, ok := b.dates[key]; ok {
				dir = contracts.DirectionBuy
			} else if _, ok := s.dates[key]; ok {
				dir = contracts.DirectionSell
			}
			cl.Timeline = append(cl.Timeline, contracts.DayDirection{Date: d, Direction: dir})
		}

		out = append(out, cl)
	}

	for i, e := range result.Sell.Entries {
		if _, ok := both[e.Code]; ok {
			result.Sell.Entries[i].CrossListed = true
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].NetSum != out[j].NetSum {
			return out[i].NetSum > out[j].NetSum
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func sectorOf(u *contracts.Universe, e contracts.RankedEntry) string {
	if e.Sector != "" {
		return e.Sector
	}
	return u.Sector(e.Code)
}

func sortedDates(m map[string]time.Time) []time.Time {
	out := make([]time.Time, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// dayOfMonth formats dates as two-digit day-of-month, e.g. "05"
func dayOfMonth(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("02")
	}
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
