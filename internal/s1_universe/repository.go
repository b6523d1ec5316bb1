package s1_universe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/contracts"
)

// Repository handles data persistence for S1
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.UniverseSource = (*Repository)(nil)

// SaveUniverse replaces the stored allow-list of a market
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	if universe.Securities == nil {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM flow.universe WHERE market = $1`, string(universe.Market)); err != nil {
		return fmt.Errorf("clear universe: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range universe.Securities {
		batch.Queue(`
			INSERT INTO flow.universe (market, stock_code, stock_name, sector, is_fund, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			string(universe.Market), s.Code, s.Name, s.Sector, s.Fund)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert universe: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadUniverse reads the stored allow-list. No rows yields an open universe.
func (r *Repository) LoadUniverse(ctx context.Context, market contracts.Market) (*contracts.Universe, error) {
	rows, err := r.db.Query(ctx, `
		SELECT stock_code, stock_name, sector, is_fund, updated_at
		FROM flow.universe
		WHERE market = $1`, string(market))
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	u := &contracts.Universe{Market: market}
	for rows.Next() {
		var (
			s       contracts.Security
			updated time.Time
		)
		if err := rows.Scan(&s.Code, &s.Name, &s.Sector, &s.Fund, &updated); err != nil {
			return nil, fmt.Errorf("scan universe: %w", err)
		}
		if u.Securities == nil {
			u.Securities = make(map[string]contracts.Security)
		}
		u.Securities[s.Code] = s
		if updated.After(u.Date) {
			u.Date = contracts.TradingDate(updated)
		}
	}
	return u, rows.Err()
}
