package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/contracts"
)

// Repository handles run quality persistence
// ⭐ SSOT: 실행 품질 요약 저장
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save stores the quality of one run
func (r *Repository) Save(ctx context.Context, runID string, market contracts.Market, asOf time.Time, a *Assessment) error {
	details, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal quality details: %w", err)
	}

	query := `
		INSERT INTO audit.flow_run_quality (
			run_id, market, as_of, files_processed, files_skipped,
			records_total, records_kept, duplicates, empty_codes, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			details = EXCLUDED.details
	`

	q := a.Quality
	_, err = r.pool.Exec(ctx, query,
		runID, string(market), asOf, q.FilesProcessed, q.FilesSkipped,
		q.RecordsTotal, q.RecordsKept, q.Duplicates, q.EmptyCodes, details,
	)
	if err != nil {
		return fmt.Errorf("save run quality: %w", err)
	}
	return nil
}
