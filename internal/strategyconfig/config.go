package strategyconfig

import (
	"strings"
	"time"

	"github.com/wonny/instflow/internal/contracts"
)

// Config holds every tunable of the flow engine
type Config struct {
	Meta           Meta            `yaml:"meta" json:"meta"`
	Markets        []MarketProfile `yaml:"markets" json:"markets"`
	Ranking        Ranking         `yaml:"ranking" json:"ranking"`
	Statistics     Statistics      `yaml:"statistics" json:"statistics"`
	History        History         `yaml:"history" json:"history"`
	Classification Classification  `yaml:"classification" json:"classification"`
	Aggregate      Aggregate       `yaml:"aggregate" json:"aggregate"`
	Collector      Collector       `yaml:"collector" json:"collector"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// MarketProfile locates one market's inputs, relative to FLOW_DATA_DIR
type MarketProfile struct {
	ID        string `yaml:"id" json:"id"`                 // TSE, OTC
	FlowDir   string `yaml:"flow_dir" json:"flow_dir"`     // institutional day files
	PriceDir  string `yaml:"price_dir" json:"price_dir"`   // daily quote files
	StockList string `yaml:"stock_list" json:"stock_list"` // allow-list CSV
}

// Ranking S2: daily top lists
type Ranking struct {
	BuyCount     int `yaml:"buy_count" json:"buy_count"`         // N1
	SellCount    int `yaml:"sell_count" json:"sell_count"`       // N2
	FundCount    int `yaml:"fund_count" json:"fund_count"`       // ETF lists
	TrackedCount int `yaml:"tracked_count" json:"tracked_count"` // new-entrant / aggregate subset
}

// Statistics S2: trailing-window z-score
type Statistics struct {
	SigmaThreshold float64 `yaml:"sigma_threshold" json:"sigma_threshold"`
	WindowDays     int     `yaml:"window_days" json:"window_days"`
	MinDays        int     `yaml:"min_days" json:"min_days"`
	Workers        int     `yaml:"workers" json:"workers"`
}

// History S2: how much is read and retained
type History struct {
	LoadDays   int `yaml:"load_days" json:"load_days"`     // most recent day files to read
	RetainDays int `yaml:"retain_days" json:"retain_days"` // per-security cap
}

// Observable pools
const (
	PoolTopN    = "top_n"   // evaluate latest top N1/N2
	PoolTracked = "tracked" // evaluate latest tracked top 20
)

// Classification S3: new entrants and observables
type Classification struct {
	LookbackDays      int    `yaml:"lookback_days" json:"lookback_days"`
	PersistentMinDays int    `yaml:"persistent_min_days" json:"persistent_min_days"`
	ObservablePool    string `yaml:"observable_pool" json:"observable_pool"`
}

// Aggregate S4: multi-day leaderboards
type Aggregate struct {
	Days         int    `yaml:"days" json:"days"`
	Mode         string `yaml:"mode" json:"mode"` // threshold | top_n
	Threshold    int64  `yaml:"threshold" json:"threshold"`
	TopN         int    `yaml:"top_n" json:"top_n"`
	TimelineDays int    `yaml:"timeline_days" json:"timeline_days"`
	Scope        string `yaml:"scope" json:"scope"` // ranked | all
}

// Collector S5: merged chart history
type Collector struct {
	MaxDays int    `yaml:"max_days" json:"max_days"`
	Scope   string `yaml:"scope" json:"scope"` // ranked | all
	Since   string `yaml:"since" json:"since"` // YYYY-MM-DD, optional
}

// SelectionMode returns the aggregate mode as a typed value
func (a Aggregate) SelectionMode() contracts.SelectionMode {
	return contracts.SelectionMode(a.Mode)
}

// SinceDate parses collector.since; empty yields the zero time
func (c Collector) SinceDate() (time.Time, error) {
	if c.Since == "" {
		return time.Time{}, nil
	}
	return time.Parse(contracts.DateLayout, c.Since)
}

// Market returns the profile of a market
func (c *Config) Market(m contracts.Market) (MarketProfile, bool) {
	for _, p := range c.Markets {
		if strings.EqualFold(p.ID, string(m)) {
			return p, true
		}
	}
	return MarketProfile{}, false
}

// Default returns the production parameters
func Default() *Config {
	return &Config{
		Meta: Meta{StrategyID: "inst_flow_v1", Version: "1", Timezone: "Asia/Taipei"},
		Markets: []MarketProfile{
			{ID: "TSE", FlowDir: "StockTSEShares", PriceDir: "StockTSEDaily", StockList: "StockList/stockListTSE.csv"},
			{ID: "OTC", FlowDir: "StockOTCShares", PriceDir: "StockOTCDaily", StockList: "StockList/stockListOTC.csv"},
		},
		Ranking:        Ranking{BuyCount: 100, SellCount: 50, FundCount: 10, TrackedCount: 20},
		Statistics:     Statistics{SigmaThreshold: 2.5, WindowDays: 60, MinDays: 30, Workers: 4},
		History:        History{LoadDays: 61, RetainDays: 61},
		Classification: Classification{LookbackDays: 4, PersistentMinDays: 3, ObservablePool: PoolTopN},
		Aggregate: Aggregate{
			Days:         5,
			Mode:         string(contracts.SelectionTopN),
			TopN:         100,
			TimelineDays: 5,
			Scope:        string(contracts.ScopeRanked),
		},
		Collector: Collector{MaxDays: 100, Scope: string(contracts.ScopeRanked)},
	}
}
