package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/contracts"
)

// PriceRepository stores daily quotes and serves them as a PriceSource
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

var _ contracts.PriceSource = (*PriceRepository)(nil)

// SavePrices upserts the quotes of a price batch
func (r *PriceRepository) SavePrices(ctx context.Context, market contracts.Market, prices map[string][]contracts.PricePoint) error {
	query := `
		INSERT INTO flow.daily_prices (
			market, trade_date, stock_code, volume_lots, trades, turnover,
			open_price, high_price, low_price, close_price, change, pe_ratio, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (market, trade_date, stock_code) DO UPDATE SET
			volume_lots = EXCLUDED.volume_lots,
			trades      = EXCLUDED.trades,
			turnover    = EXCLUDED.turnover,
			open_price  = EXCLUDED.open_price,
			high_price  = EXCLUDED.high_price,
			low_price   = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			change      = EXCLUDED.change,
			pe_ratio    = EXCLUDED.pe_ratio,
			updated_at  = NOW()
	`

	batch := &pgx.Batch{}
	for code, points := range prices {
		for _, p := range points {
			batch.Queue(query, string(market), p.Date, code, p.VolumeLots, p.Trades, p.Turnover,
				p.Open, p.High, p.Low, p.Close, p.Change, p.PE)
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save prices %s: %w", market, err)
	}
	return nil
}

// LoadPrices returns stored quotes of codes on or after since
func (r *PriceRepository) LoadPrices(ctx context.Context, market contracts.Market, codes []string, since time.Time) (*contracts.PriceBatch, error) {
	query := `
		SELECT stock_code, trade_date, COALESCE(volume_lots, 0), COALESCE(trades, 0), COALESCE(turnover, 0),
		       COALESCE(open_price, 0), COALESCE(high_price, 0), COALESCE(low_price, 0),
		       COALESCE(close_price, 0), COALESCE(change, 0), pe_ratio
		FROM flow.daily_prices
		WHERE market = $1 AND stock_code = ANY($2) AND trade_date >= $3
		ORDER BY stock_code, trade_date
	`

	rows, err := r.pool.Query(ctx, query, string(market), codes, since)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	batch := &contracts.PriceBatch{Prices: make(map[string][]contracts.PricePoint)}
	for rows.Next() {
		var (
			code string
			p    contracts.PricePoint
		)
		if err := rows.Scan(&code, &p.Date, &p.VolumeLots, &p.Trades, &p.Turnover,
			&p.Open, &p.High, &p.Low, &p.Close, &p.Change, &p.PE); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		p.Date = contracts.TradingDate(p.Date)
		batch.Prices[code] = append(batch.Prices[code], p)
	}
	return batch, rows.Err()
}
