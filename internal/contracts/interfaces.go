package contracts

import (
	"context"
	"time"
)

// SnapshotSource supplies daily snapshots (S0)
// ⭐ SSOT: 일별 스냅샷 공급 인터페이스
type SnapshotSource interface {
	// LoadSnapshots returns up to limit snapshots, most recent first.
	// Missing or unreadable days are skipped and counted, never fatal.
	LoadSnapshots(ctx context.Context, market Market, limit int) (*SnapshotBatch, error)
}

// PriceSource supplies daily market data for chart history (S0)
type PriceSource interface {
	// LoadPrices returns prices of codes on or after since (zero = unbounded).
	LoadPrices(ctx context.Context, market Market, codes []string, since time.Time) (*PriceBatch, error)
}

// UniverseSource supplies the allow-list (S1)
// ⭐ SSOT: 유니버스 공급 인터페이스
type UniverseSource interface {
	LoadUniverse(ctx context.Context, market Market) (*Universe, error)
}

// ReportPublisher receives a finished report (cache, database, files)
type ReportPublisher interface {
	Publish(ctx context.Context, report *Report) error
}

// ReportReader returns the latest published report of a market
type ReportReader interface {
	LatestReport(ctx context.Context, market Market) (*Report, error)
}
