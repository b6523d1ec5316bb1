package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/contracts"
)

// Ranking list names stored in flow.rankings
const (
	ListBuy         = "buy"
	ListSell        = "sell"
	ListFundBuy     = "fund_buy"
	ListFundSell    = "fund_sell"
	ListTrackedBuy  = "tracked_buy"
	ListTrackedSell = "tracked_sell"
)

// Repository handles ranking and classification persistence
// ⭐ SSOT: 순위/분류 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRankings replaces every list of one trading day
func (r *Repository) SaveRankings(ctx context.Context, market contracts.Market, result *contracts.RankingResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"DELETE FROM flow.rankings WHERE market = $1 AND trade_date = $2",
		string(market), result.Date,
	); err != nil {
		return fmt.Errorf("failed to delete old rankings: %w", err)
	}

	query := `
		INSERT INTO flow.rankings (
			market, trade_date, list_name, rank, stock_code, stock_name, net_lots
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	lists := map[string][]contracts.RankedEntry{
		ListBuy:         result.Buy,
		ListSell:        result.Sell,
		ListFundBuy:     result.FundBuy,
		ListFundSell:    result.FundSell,
		ListTrackedBuy:  result.TrackedBuy,
		ListTrackedSell: result.TrackedSell,
	}

	batch := &pgx.Batch{}
	for name, entries := range lists {
		for _, e := range entries {
			batch.Queue(query, string(market), result.Date, name, e.Rank, e.Code, e.Name, e.NetVolume)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert rankings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rankings: %w", err)
	}
	return nil
}

// LoadRankings returns one list of a trading day in rank order
func (r *Repository) LoadRankings(ctx context.Context, market contracts.Market, date string, list string) ([]contracts.RankedEntry, error) {
	query := `
		SELECT rank, stock_code, stock_name, net_lots, trade_date
		FROM flow.rankings
		WHERE market = $1 AND trade_date = $2 AND list_name = $3
		ORDER BY rank
	`

	rows, err := r.pool.Query(ctx, query, string(market), date, list)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	var entries []contracts.RankedEntry
	for rows.Next() {
		var e contracts.RankedEntry
		if err := rows.Scan(&e.Rank, &e.Code, &e.Name, &e.NetVolume, &e.Date); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveClassification replaces the new entrants and observables of the classified day
func (r *Repository) SaveClassification(ctx context.Context, market contracts.Market, c *contracts.Classification) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"DELETE FROM flow.observations WHERE market = $1 AND trade_date = $2",
		string(market), c.Date,
	); err != nil {
		return fmt.Errorf("failed to delete old observations: %w", err)
	}

	query := `
		INSERT INTO flow.observations (
			market, trade_date, side, stock_code, is_new, reasons, z_score, mean_lots, std_lots, persistent_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	batch := &pgx.Batch{}
	queueNew := func(side contracts.Side, codes []string) {
		for _, code := range codes {
			batch.Queue(query, string(market), c.Date, string(side), code, true, "", nil, nil, nil, 0)
		}
	}
	queueNew(contracts.SideBuy, c.NewBuy)
	queueNew(contracts.SideSell, c.NewSell)

	for _, side := range []contracts.Side{contracts.SideBuy, contracts.SideSell} {
		for _, o := range c.Observables(side) {
			var z, mean, std *float64
			if o.HasStats {
				z, mean, std = &o.ZScore, &o.Mean, &o.Std
			}
			batch.Queue(query, string(market), c.Date, string(side), o.Code, false, o.ReasonText(), z, mean, std, o.PersistentDays)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert observations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit observations: %w", err)
	}
	return nil
}

// LoadClassification restores the classification saved for one trading day.
// Names and net volumes come from the tracked list of the same side and day.
func (r *Repository) LoadClassification(ctx context.Context, market contracts.Market, date string) (*contracts.Classification, error) {
	day, err := time.Parse(contracts.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	query := `
		SELECT o.side, o.stock_code, o.is_new, o.reasons, o.z_score, o.mean_lots, o.std_lots,
			o.persistent_days, COALESCE(k.stock_name, ''), COALESCE(k.net_lots, 0)
		FROM flow.observations o
		LEFT JOIN flow.rankings k
			ON k.market = o.market AND k.trade_date = o.trade_date
			AND k.list_name = 'tracked_' || o.side AND k.stock_code = o.stock_code
		WHERE o.market = $1 AND o.trade_date = $2
		ORDER BY o.side, k.rank NULLS LAST, o.stock_code
	`

	rows, err := r.pool.Query(ctx, query, string(market), date)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	c := &contracts.Classification{
		Date:           day,
		NewBuy:         []string{},
		NewSell:        []string{},
		ObservableBuy:  make(map[string]contracts.Observation),
		ObservableSell: make(map[string]contracts.Observation),
	}
	for rows.Next() {
		var (
			side         string
			isNew        bool
			reasons      string
			z, mean, std *float64
			o            contracts.Observation
		)
		if err := rows.Scan(&side, &o.Code, &isNew, &reasons, &z, &mean, &std,
			&o.PersistentDays, &o.Name, &o.NetVolume); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		if isNew {
			c.AddNew(contracts.Side(side), o.Code)
			continue
		}
		o.Reasons = contracts.ParseReasons(reasons)
		if z != nil && mean != nil && std != nil {
			o.HasStats = true
			o.ZScore, o.Mean, o.Std = *z, *mean, *std
		}
		c.AddObservable(contracts.Side(side), o)
	}
	return c, rows.Err()
}
