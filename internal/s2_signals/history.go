package s2_signals

import (
	"sort"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/pkg/logger"
)

// Accumulator folds snapshots into per-security series and the per-day volume map.
// Snapshots may arrive in any order; a (code, date) seen twice keeps the last value.
// ⭐ SSOT: 종목별 이력 누적은 여기서만
type Accumulator struct {
	retain int
	days   map[string]map[string]int64
	logger *logger.Logger
}

// NewAccumulator keeps at most retain points per security (0 = unlimited)
func NewAccumulator(retain int, log *logger.Logger) *Accumulator {
	return &Accumulator{
		retain: retain,
		days:   make(map[string]map[string]int64),
		logger: log.Component("accumulator"),
	}
}

// Add ingests the eligible records of one snapshot
func (a *Accumulator) Add(snap *contracts.DailySnapshot, universe *contracts.Universe) {
	key := contracts.DateKey(snap.Date)
	day, ok := a.days[key]
	if !ok {
		day = make(map[string]int64, len(snap.Records))
		a.days[key] = day
	}
	for _, rec := range snap.Records {
		if !universe.Eligible(rec.Code) {
			continue
		}
		day[rec.Code] = rec.NetVolume
	}
}

// History returns the accumulated view. Series are ascending and capped
// to the most recent retain points.
func (a *Accumulator) History() *contracts.History {
	days := make(map[string]map[string]int64, len(a.days))
	byCode := make(map[string][]contracts.FlowPoint)

	h := &contracts.History{Days: days}
	for key, day := range a.days {
		copied := make(map[string]int64, len(day))
		for code, v := range day {
			copied[code] = v
		}
		days[key] = copied
	}

	for _, date := range h.Dates() {
		for code, v := range days[contracts.DateKey(date)] {
			byCode[code] = append(byCode[code], contracts.FlowPoint{Date: date, NetVolume: v})
		}
	}

	h.Series = make(map[string]*contracts.HistorySeries, len(byCode))
	for code, points := range byCode {
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		if a.retain > 0 && len(points) > a.retain {
			points = points[len(points)-a.retain:]
		}
		h.Series[code] = &contracts.HistorySeries{Code: code, Points: points}
	}

	a.logger.WithFields(map[string]interface{}{
		"days":       len(days),
		"securities": len(h.Series),
	}).Debug("history accumulated")

	return h
}

// Accumulate folds snapshots in the order given
func Accumulate(snaps []contracts.DailySnapshot, universe *contracts.Universe, retain int, log *logger.Logger) *contracts.History {
	acc := NewAccumulator(retain, log)
	for i := range snaps {
		acc.Add(&snaps[i], universe)
	}
	return acc.History()
}
