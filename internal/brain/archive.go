package brain

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/aggregate"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/selection"
)

type rankingStore interface {
	LoadRankings(ctx context.Context, market contracts.Market, date string, list string) ([]contracts.RankedEntry, error)
}

type classificationStore interface {
	LoadClassification(ctx context.Context, market contracts.Market, date string) (*contracts.Classification, error)
}

type aggregateStore interface {
	Latest(ctx context.Context, market contracts.Market) (*contracts.AggregateResult, string, error)
}

// Archive rebuilds the latest report of a market from PostgreSQL.
// The aggregate, the top lists and the classification of its as-of day are restored.
type Archive struct {
	rankings        rankingStore
	classifications classificationStore
	aggregates      aggregateStore
}

// NewArchive creates an archive reader over one pool
func NewArchive(pool *pgxpool.Pool) *Archive {
	selections := selection.NewRepository(pool)
	return &Archive{
		rankings:        selections,
		classifications: selections,
		aggregates:      aggregate.NewRepository(pool),
	}
}

var _ contracts.ReportReader = (*Archive)(nil)

// LatestReport returns the stored aggregate with the rankings and classification of the same day
func (a *Archive) LatestReport(ctx context.Context, market contracts.Market) (*contracts.Report, error) {
	agg, hash, err := a.aggregates.Latest(ctx, market)
	if errors.Is(err, aggregate.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	date := contracts.DateKey(agg.AsOf)
	rk := contracts.RankingResult{Date: agg.AsOf}
	lists := []struct {
		name string
		dst  *[]contracts.RankedEntry
	}{
		{selection.ListBuy, &rk.Buy},
		{selection.ListSell, &rk.Sell},
		{selection.ListFundBuy, &rk.FundBuy},
		{selection.ListFundSell, &rk.FundSell},
		{selection.ListTrackedBuy, &rk.TrackedBuy},
		{selection.ListTrackedSell, &rk.TrackedSell},
	}
	for _, l := range lists {
		entries, err := a.rankings.LoadRankings(ctx, market, date, l.name)
		if err != nil {
			return nil, fmt.Errorf("load %s rankings: %w", l.name, err)
		}
		*l.dst = entries
	}

	classification, err := a.classifications.LoadClassification(ctx, market, date)
	if err != nil {
		return nil, fmt.Errorf("load classification: %w", err)
	}

	return &contracts.Report{
		Market:         market,
		AsOf:           agg.AsOf,
		ConfigHash:     hash,
		Rankings:       []contracts.RankingResult{rk},
		Classification: *classification,
		Aggregate:      *agg,
	}, nil
}
