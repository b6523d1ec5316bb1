package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/contracts"
)

// ErrNotFound is returned when no aggregate was stored for a market
var ErrNotFound = errors.New("aggregate not found")

// Repository stores aggregate results as JSONB keyed by market and date
// ⭐ SSOT: 리더보드 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new aggregate repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts the result of one run
func (r *Repository) Save(ctx context.Context, market contracts.Market, configHash string, result *contracts.AggregateResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate: %w", err)
	}

	query := `
		INSERT INTO flow.aggregates (market, as_of, config_hash, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (market, as_of) DO UPDATE SET
			config_hash = EXCLUDED.config_hash,
			payload     = EXCLUDED.payload,
			created_at  = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, string(market), result.AsOf, configHash, payload); err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}
	return nil
}

// Latest returns the most recent stored result of a market
func (r *Repository) Latest(ctx context.Context, market contracts.Market) (*contracts.AggregateResult, string, error) {
	query := `
		SELECT config_hash, payload
		FROM flow.aggregates
		WHERE market = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	var (
		hash    string
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, string(market)).Scan(&hash, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to query aggregate: %w", err)
	}

	var result contracts.AggregateResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal aggregate: %w", err)
	}
	return &result, hash, nil
}
