package brain

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/instflow/internal/aggregate"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data"
	"github.com/wonny/instflow/internal/s0_data/quality"
	"github.com/wonny/instflow/internal/s1_universe"
	"github.com/wonny/instflow/internal/selection"
)

// Persister writes run inputs and results to PostgreSQL
type Persister struct {
	flowRepo      *s0_data.FlowRepository
	universeRepo  *s1_universe.Repository
	selectionRepo *selection.Repository
	aggregateRepo *aggregate.Repository
	qualityRepo   *quality.Repository
}

// NewPersister creates a persister over one pool
func NewPersister(pool *pgxpool.Pool) *Persister {
	return &Persister{
		flowRepo:      s0_data.NewFlowRepository(pool),
		universeRepo:  s1_universe.NewRepository(pool),
		selectionRepo: selection.NewRepository(pool),
		aggregateRepo: aggregate.NewRepository(pool),
		qualityRepo:   quality.NewRepository(pool),
	}
}

var (
	_ contracts.ReportPublisher = (*Persister)(nil)
	_ InputRecorder             = (*Persister)(nil)
)

// RecordInputs stores the snapshots and the allow-list of a run
func (p *Persister) RecordInputs(ctx context.Context, batch *contracts.SnapshotBatch, universe *contracts.Universe) error {
	if err := p.flowRepo.SaveBatch(ctx, batch); err != nil {
		return err
	}
	if universe != nil && universe.Count() > 0 {
		if err := p.universeRepo.SaveUniverse(ctx, universe); err != nil {
			return fmt.Errorf("save universe: %w", err)
		}
	}
	return nil
}

// Publish stores the rankings, classification, aggregate and quality of a report
func (p *Persister) Publish(ctx context.Context, report *contracts.Report) error {
	for i := range report.Rankings {
		if err := p.selectionRepo.SaveRankings(ctx, report.Market, &report.Rankings[i]); err != nil {
			return fmt.Errorf("save rankings: %w", err)
		}
	}

	if !report.Classification.Date.IsZero() {
		if err := p.selectionRepo.SaveClassification(ctx, report.Market, &report.Classification); err != nil {
			return fmt.Errorf("save classification: %w", err)
		}
	}

	if err := p.aggregateRepo.Save(ctx, report.Market, report.ConfigHash, &report.Aggregate); err != nil {
		return err
	}

	assessment := &quality.Assessment{
		Quality: report.Quality,
		Passed:  report.QualityPassed,
		Issues:  report.QualityIssues,
	}
	if err := p.qualityRepo.Save(ctx, report.RunID, report.Market, report.AsOf, assessment); err != nil {
		return err
	}
	return nil
}
