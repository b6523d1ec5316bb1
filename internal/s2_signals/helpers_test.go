package s2_signals

import (
	"time"

	"github.com/wonny/instflow/internal/contracts"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func snapshot(d time.Time, vols map[string]int64) contracts.DailySnapshot {
	snap := contracts.DailySnapshot{Market: contracts.MarketTSE, Date: d}
	for code, v := range vols {
		snap.Records = append(snap.Records, contracts.SecurityRecord{Code: code, Name: "n" + code, NetVolume: v, Date: d})
	}
	return snap
}

// series builds an ascending series whose last value is latest
func series(code string, basis []int64, latest int64) *contracts.HistorySeries {
	s := &contracts.HistorySeries{Code: code}
	for i, v := range basis {
		s.Points = append(s.Points, contracts.FlowPoint{Date: day(i), NetVolume: v})
	}
	s.Points = append(s.Points, contracts.FlowPoint{Date: day(len(basis)), NetVolume: latest})
	return s
}
