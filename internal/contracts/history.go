package contracts

import (
	"sort"
	"time"
)

// FlowPoint is one dated net volume of a security
type FlowPoint struct {
	Date      time.Time `json:"date"`
	NetVolume int64     `json:"net_volume"`
}

// HistorySeries is a security's flow points in ascending date order with unique dates
type HistorySeries struct {
	Code   string      `json:"code"`
	Points []FlowPoint `json:"points"`
}

// Len returns the number of points
func (s *HistorySeries) Len() int {
	return len(s.Points)
}

// Latest returns the most recent point
func (s *HistorySeries) Latest() (FlowPoint, bool) {
	if s == nil || len(s.Points) == 0 {
		return FlowPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Descending returns a copy of the points, most recent first
func (s *HistorySeries) Descending() []FlowPoint {
	out := make([]FlowPoint, len(s.Points))
	for i, p := range s.Points {
		out[len(s.Points)-1-i] = p
	}
	return out
}

// History is the accumulated view over all ingested snapshots.
// Read-only once accumulation finishes.
type History struct {
	Series map[string]*HistorySeries   `json:"series"`
	Days   map[string]map[string]int64 `json:"days"` // date key → code → net volume
}

// Dates returns the distinct trading dates, ascending
func (h *History) Dates() []time.Time {
	dates := make([]time.Time, 0, len(h.Days))
	for key := range h.Days {
		d, err := time.Parse(DateLayout, key)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// DatesDescending returns the distinct trading dates, most recent first
func (h *History) DatesDescending() []time.Time {
	dates := h.Dates()
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates
}

// Volume returns the net volume of code on date
func (h *History) Volume(date time.Time, code string) (int64, bool) {
	day, ok := h.Days[DateKey(date)]
	if !ok {
		return 0, false
	}
	v, ok := day[code]
	return v, ok
}
