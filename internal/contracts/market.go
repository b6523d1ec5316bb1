package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Market identifies an exchange board
type Market string

const (
	MarketTSE Market = "TSE" // 上市
	MarketOTC Market = "OTC" // 上櫃
)

// ParseMarket accepts TSE/OTC in any case
func ParseMarket(s string) (Market, error) {
	switch Market(strings.ToUpper(strings.TrimSpace(s))) {
	case MarketTSE:
		return MarketTSE, nil
	case MarketOTC:
		return MarketOTC, nil
	default:
		return "", fmt.Errorf("unknown market %q (want TSE or OTC)", s)
	}
}

// Label returns the local display name of the market
func (m Market) Label() string {
	switch m {
	case MarketTSE:
		return "上市"
	case MarketOTC:
		return "上櫃"
	default:
		return string(m)
	}
}

// Side is the direction of institutional flow
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Scope selects which securities a reducer or collector works on.
// It is always passed explicitly; nothing reads it from ambient state.
type Scope string

const (
	ScopeRanked Scope = "ranked" // only securities that made the daily top lists
	ScopeAll    Scope = "all"    // every eligible security
)

// Valid reports whether s is a known scope
func (s Scope) Valid() bool {
	return s == ScopeRanked || s == ScopeAll
}

// DateLayout is the canonical trading-date key
const DateLayout = "2006-01-02"

// DateKey formats a trading date as its canonical key
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// TradingDate truncates t to its calendar day in UTC
func TradingDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
