package contracts

import "time"

// PricePoint is one day of market data for a security
type PricePoint struct {
	Date       time.Time `json:"date"`
	VolumeLots int64     `json:"volume_lots"` // 成交張數
	Trades     int64     `json:"trades"`      // 成交筆數
	Turnover   int64     `json:"turnover"`    // 成交金額
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Change     float64   `json:"change"`
	PE         *float64  `json:"pe,omitempty"` // nil when not published
}

// PriceBatch is what a price source returns
type PriceBatch struct {
	Prices    map[string][]PricePoint `json:"prices"` // code → points, any order
	Processed int                     `json:"processed"`
	Skipped   int                     `json:"skipped"`
}

// MergedRecord joins flow and price for one security on one date.
// Either side may be missing for a date.
type MergedRecord struct {
	Date       time.Time       `json:"date"`
	NetVolume  *int64          `json:"net_volume,omitempty"`
	Components *FlowComponents `json:"components,omitempty"`
	Price      *PricePoint     `json:"price,omitempty"`
}

// MergedHistory is the chart input of one security, ascending by date
type MergedHistory struct {
	Code    string         `json:"code"`
	Name    string         `json:"name"`
	Records []MergedRecord `json:"records"`
}
