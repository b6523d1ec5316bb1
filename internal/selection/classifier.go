package selection

import (
	"time"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/logger"
)

// Classifier flags new entrants and observables on the latest ranked day
// ⭐ SSOT: 신규/관찰 종목 분류는 여기서만
type Classifier struct {
	config strategyconfig.Classification
	logger *logger.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(config strategyconfig.Classification, log *logger.Logger) *Classifier {
	return &Classifier{
		config: config,
		logger: log.Component("classifier"),
	}
}

// Classify evaluates rankings[0] against the preceding ranked days.
// rankings must be most recent first. Fewer than two distinct ranked days
// yields an empty classification.
func (c *Classifier) Classify(
	rankings []contracts.RankingResult,
	history *contracts.History,
	stats map[string]contracts.AnomalyStats,
) *contracts.Classification {
	result := &contracts.Classification{
		NewBuy:         []string{},
		NewSell:        []string{},
		ObservableBuy:  make(map[string]contracts.Observation),
		ObservableSell: make(map[string]contracts.Observation),
	}
	if len(rankings) == 0 {
		return result
	}

	latest := &rankings[0]
	result.Date = latest.Date
	prior := c.priorRankings(rankings[1:], latest.Date)
	if len(prior) == 0 {
		c.logger.WithField("date", contracts.DateKey(latest.Date)).Warn("fewer than two ranked days, classification skipped")
		return result
	}

	priorDates := c.priorDates(history, latest.Date)

	for _, side := range []contracts.Side{contracts.SideBuy, contracts.SideSell} {
		seen := make(map[string]struct{})
		for _, r := range prior {
			for _, e := range r.Tracked(side) {
				seen[e.Code] = struct{}{}
			}
		}

		var fresh []string
		isNew := make(map[string]struct{})
		for _, e := range latest.Tracked(side) {
			if _, ok := seen[e.Code]; ok {
				continue
			}
			fresh = append(fresh, e.Code)
			isNew[e.Code] = struct{}{}
		}

		observables := result.ObservableBuy
		if side == contracts.SideSell {
			observables = result.ObservableSell
			result.NewSell = append(result.NewSell, fresh...)
		} else {
			result.NewBuy = append(result.NewBuy, fresh...)
		}

		for _, e := range c.pool(latest, side) {
			if _, ok := isNew[e.Code]; ok {
				continue
			}
			if obs, ok := c.observe(e, side, history, priorDates, stats); ok {
				observables[e.Code] = obs
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"date":            contracts.DateKey(latest.Date),
		"new_buy":         len(result.NewBuy),
		"new_sell":        len(result.NewSell),
		"observable_buy":  len(result.ObservableBuy),
		"observable_sell": len(result.ObservableSell),
	}).Info("classification completed")

	return result
}

// priorRankings returns up to LookbackDays rankings of distinct dates strictly
// before latest, most recent first
func (c *Classifier) priorRankings(rankings []contracts.RankingResult, latest time.Time) []*contracts.RankingResult {
	var out []*contracts.RankingResult
	seen := make(map[time.Time]struct{})
	for i := range rankings {
		d := rankings[i].Date
		if !d.Before(latest) {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, &rankings[i])
		if len(out) == c.config.LookbackDays {
			break
		}
	}
	return out
}

// pool returns the latest list whose members are evaluated as observables
func (c *Classifier) pool(latest *contracts.RankingResult, side contracts.Side) []contracts.RankedEntry {
	if c.config.ObservablePool == strategyconfig.PoolTracked {
		return latest.Tracked(side)
	}
	return latest.Top(side)
}

// priorDates returns up to LookbackDays accumulated dates before latest, most recent first
func (c *Classifier) priorDates(history *contracts.History, latest time.Time) []time.Time {
	if history == nil {
		return nil
	}
	var out []time.Time
	for _, d := range history.DatesDescending() {
		if !d.Before(latest) {
			continue
		}
		out = append(out, d)
		if len(out) == c.config.LookbackDays {
			break
		}
	}
	return out
}

func (c *Classifier) observe(
	e contracts.RankedEntry,
	side contracts.Side,
	history *contracts.History,
	priorDates []time.Time,
	stats map[string]contracts.AnomalyStats,
) (contracts.Observation, bool) {
	obs := contracts.Observation{
		Code:      e.Code,
		Name:      e.Name,
		NetVolume: e.NetVolume,
	}

	if s, ok := stats[e.Code]; ok {
		obs.HasStats = true
		obs.ZScore = s.ZScore
		obs.Mean = s.Mean
		obs.Std = s.Std
		if s.Anomalous {
			obs.Reasons = append(obs.Reasons, contracts.ReasonAnomalous)
		}
	}

	// 데이터가 없는 날은 카운트하지 않음
	for _, d := range priorDates {
		v, ok := history.Volume(d, e.Code)
		if !ok {
			continue
		}
		if (side == contracts.SideBuy && v > 0) || (side == contracts.SideSell && v < 0) {
			obs.PersistentDays++
		}
	}
	if obs.PersistentDays >= c.config.PersistentMinDays {
		if side == contracts.SideBuy {
			obs.Reasons = append(obs.Reasons, contracts.ReasonPersistentBuy)
		} else {
			obs.Reasons = append(obs.Reasons, contracts.ReasonPersistentSell)
		}
	}

	return obs, len(obs.Reasons) > 0
}
