package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/contracts"
)

// FlowRepository stores daily snapshots and serves them back as a SnapshotSource
// ⭐ SSOT: 수급 데이터 저장소는 여기서만
type FlowRepository struct {
	pool *pgxpool.Pool
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(pool *pgxpool.Pool) *FlowRepository {
	return &FlowRepository{pool: pool}
}

var _ contracts.SnapshotSource = (*FlowRepository)(nil)

// SaveSnapshot upserts every record of a snapshot in one batch
func (r *FlowRepository) SaveSnapshot(ctx context.Context, snap *contracts.DailySnapshot) error {
	if len(snap.Records) == 0 {
		return nil
	}

	query := `
		INSERT INTO flow.daily_flow (
			market, trade_date, stock_code, stock_name, sector,
			net_lots, foreign_lots, trust_lots, dealer_lots, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (market, trade_date, stock_code) DO UPDATE SET
			stock_name   = EXCLUDED.stock_name,
			sector       = EXCLUDED.sector,
			net_lots     = EXCLUDED.net_lots,
			foreign_lots = EXCLUDED.foreign_lots,
			trust_lots   = EXCLUDED.trust_lots,
			dealer_lots  = EXCLUDED.dealer_lots,
			updated_at   = NOW()
	`

	batch := &pgx.Batch{}
	for _, rec := range snap.Records {
		var foreign, trust, dealer *int64
		if c := rec.Components; c != nil {
			foreign, trust, dealer = &c.Foreign, &c.Trust, &c.Dealer
		}
		batch.Queue(query,
			string(snap.Market), snap.Date, rec.Code, rec.Name, rec.Sector,
			rec.NetVolume, foreign, trust, dealer,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save snapshot %s %s: %w", snap.Market, contracts.DateKey(snap.Date), err)
	}
	return nil
}

// SaveBatch saves every snapshot of a batch
func (r *FlowRepository) SaveBatch(ctx context.Context, batch *contracts.SnapshotBatch) error {
	for i := range batch.Snapshots {
		if err := r.SaveSnapshot(ctx, &batch.Snapshots[i]); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshots returns the most recent limit trading days of a market, most recent first
func (r *FlowRepository) LoadSnapshots(ctx context.Context, market contracts.Market, limit int) (*contracts.SnapshotBatch, error) {
	query := `
		WITH days AS (
			SELECT DISTINCT trade_date
			FROM flow.daily_flow
			WHERE market = $1
			ORDER BY trade_date DESC
			LIMIT $2
		)
		SELECT f.trade_date, f.stock_code, f.stock_name, f.sector,
		       f.net_lots, f.foreign_lots, f.trust_lots, f.dealer_lots
		FROM flow.daily_flow f
		JOIN days d ON d.trade_date = f.trade_date
		WHERE f.market = $1
		ORDER BY f.trade_date DESC, f.stock_code ASC
	`

	rows, err := r.pool.Query(ctx, query, string(market), limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	batch := &contracts.SnapshotBatch{}
	var current *contracts.DailySnapshot
	for rows.Next() {
		var (
			rec                    contracts.SecurityRecord
			foreign, trust, dealer *int64
		)
		if err := rows.Scan(&rec.Date, &rec.Code, &rec.Name, &rec.Sector,
			&rec.NetVolume, &foreign, &trust, &dealer); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		rec.Date = contracts.TradingDate(rec.Date)
		if foreign != nil && trust != nil && dealer != nil {
			rec.Components = &contracts.FlowComponents{Foreign: *foreign, Trust: *trust, Dealer: *dealer}
		}

		if current == nil || !current.Date.Equal(rec.Date) {
			batch.Snapshots = append(batch.Snapshots, contracts.DailySnapshot{Market: market, Date: rec.Date})
			current = &batch.Snapshots[len(batch.Snapshots)-1]
		}
		current.Records = append(current.Records, rec)
		batch.RawRecords++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	batch.Processed = len(batch.Snapshots)
	return batch, nil
}

// LatestDate returns the most recent stored trading day of a market
func (r *FlowRepository) LatestDate(ctx context.Context, market contracts.Market) (time.Time, error) {
	var d *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(trade_date) FROM flow.daily_flow WHERE market = $1`, string(market),
	).Scan(&d)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, nil
	}
	return *d, nil
}
