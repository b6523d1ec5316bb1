package contracts

import (
	"sort"
	"strings"
	"time"
)

// Reason explains why a security is observable
type Reason string

const (
	ReasonAnomalous      Reason = "anomalous"
	ReasonPersistentBuy  Reason = "persistent-buy"
	ReasonPersistentSell Reason = "persistent-sell"
)

// Observation is a security flagged on the latest day
type Observation struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	NetVolume      int64    `json:"net_volume"`
	Reasons        []Reason `json:"reasons"`
	HasStats       bool     `json:"has_stats"`
	ZScore         float64  `json:"z_score"`
	Mean           float64  `json:"mean"`
	Std            float64  `json:"std"`
	PersistentDays int      `json:"persistent_days"` // same-direction days in the lookback
}

// ReasonText joins the reasons with "+", e.g. "anomalous+persistent-buy"
func (o Observation) ReasonText() string {
	parts := make([]string, len(o.Reasons))
	for i, r := range o.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, "+")
}

// ParseReasons reverses ReasonText
func ParseReasons(text string) []Reason {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "+")
	reasons := make([]Reason, len(parts))
	for i, p := range parts {
		reasons[i] = Reason(p)
	}
	return reasons
}

// Classification holds the new entrants and observables of the latest day
type Classification struct {
	Date           time.Time              `json:"date"`
	NewBuy         []string               `json:"new_buy"`
	NewSell        []string               `json:"new_sell"`
	ObservableBuy  map[string]Observation `json:"observable_buy"`
	ObservableSell map[string]Observation `json:"observable_sell"`
}

// Observables returns the observations of a side ordered by code
func (c *Classification) Observables(side Side) []Observation {
	src := c.ObservableBuy
	if side == SideSell {
		src = c.ObservableSell
	}
	out := make([]Observation, 0, len(src))
	for _, o := range src {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// AddNew appends a new entrant of a side
func (c *Classification) AddNew(side Side, code string) {
	if side == SideSell {
		c.NewSell = append(c.NewSell, code)
		return
	}
	c.NewBuy = append(c.NewBuy, code)
}

// AddObservable records an observation of a side
func (c *Classification) AddObservable(side Side, o Observation) {
	if side == SideSell {
		c.ObservableSell[o.Code] = o
		return
	}
	c.ObservableBuy[o.Code] = o
}
