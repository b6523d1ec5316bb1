package contracts

import "time"

// SelectionMode decides which aggregated securities make a leaderboard
type SelectionMode string

const (
	SelectionThreshold SelectionMode = "threshold" // |sum| >= threshold
	SelectionTopN      SelectionMode = "top_n"     // best N by sum
)

// LeaderboardEntry is one security's summed tracked flow over the aggregation window
type LeaderboardEntry struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Sector      string `json:"sector,omitempty"`
	Sum         int64  `json:"sum"`
	Appearances int    `json:"appearances"`
	CrossListed bool   `json:"cross_listed"` // also on the other side's board
}

// Leaderboard is the ordered result of one side
type Leaderboard struct {
	Side    Side               `json:"side"`
	Mode    SelectionMode      `json:"mode"`
	Entries []LeaderboardEntry `json:"entries"`
}

// Codes returns the codes on the board
func (l *Leaderboard) Codes() map[string]struct{} {
	set := make(map[string]struct{}, len(l.Entries))
	for _, e := range l.Entries {
		set[e.Code] = struct{}{}
	}
	return set
}

// Direction of a security on one day of the status strip
type Direction string

const (
	DirectionBuy     Direction = "buy"
	DirectionSell    Direction = "sell"
	DirectionNeutral Direction = "neutral"
)

// DayDirection is one cell of the status strip
type DayDirection struct {
	Date      time.Time `json:"date"`
	Direction Direction `json:"direction"`
}

// CrossListing reconciles a security that sits on both leaderboards
type CrossListing struct {
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Sector    string         `json:"sector,omitempty"`
	BuyDates  []time.Time    `json:"buy_dates"`
	SellDates []time.Time    `json:"sell_dates"`
	BuyDays   []string       `json:"buy_days"`  // day-of-month, "05"
	SellDays  []string       `json:"sell_days"` // day-of-month
	BuySum    int64          `json:"buy_sum"`
	SellSum   int64          `json:"sell_sum"`
	NetSum    int64          `json:"net_sum"`
	Timeline  []DayDirection `json:"timeline"` // ascending
}

// AggregateResult is the output of the aggregate reducer
type AggregateResult struct {
	AsOf          time.Time      `json:"as_of"`
	Days          []time.Time    `json:"days"` // aggregated days, ascending
	Scope         Scope          `json:"scope"`
	Buy           Leaderboard    `json:"buy"`
	Sell          Leaderboard    `json:"sell"`
	CrossListings []CrossListing `json:"cross_listings"`
}
