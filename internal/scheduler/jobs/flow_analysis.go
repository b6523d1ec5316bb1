package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/instflow/internal/brain"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/report"
	"github.com/wonny/instflow/pkg/logger"
)

// Runner runs one engine pass
type Runner interface {
	Run(ctx context.Context, rc brain.RunConfig) (*brain.RunResult, error)
}

// FlowAnalysisJob runs the flow engine for one market after the day files are published
// ⭐ SSOT: 일일 수급 분석 스케줄은 이 Job에서만
type FlowAnalysisJob struct {
	runner    Runner
	market    contracts.Market
	schedule  string
	exportDir string // empty disables the workbook export
	logger    *logger.Logger
}

// NewFlowAnalysisJob creates a new flow analysis job
func NewFlowAnalysisJob(runner Runner, market contracts.Market, schedule, exportDir string, log *logger.Logger) *FlowAnalysisJob {
	return &FlowAnalysisJob{
		runner:    runner,
		market:    market,
		schedule:  schedule,
		exportDir: exportDir,
		logger:    log.Component("job"),
	}
}

// Name returns the job name
func (j *FlowAnalysisJob) Name() string {
	return "flow_analysis_" + strings.ToLower(string(j.market))
}

// Schedule returns the cron schedule (with seconds)
func (j *FlowAnalysisJob) Schedule() string {
	return j.schedule
}

// Run executes the analysis and optionally exports the workbook
func (j *FlowAnalysisJob) Run(ctx context.Context) error {
	j.logger.WithField("market", string(j.market)).Info("Starting scheduled flow analysis")

	result, err := j.runner.Run(ctx, brain.RunConfig{Market: j.market})
	if err != nil {
		return fmt.Errorf("flow analysis %s: %w", j.market, err)
	}

	r := result.Report
	fields := map[string]interface{}{
		"market":          string(j.market),
		"as_of":           contracts.DateKey(r.AsOf),
		"anomalies":       r.AnomalyCount(),
		"cross_listed":    len(r.Aggregate.CrossListings),
		"observable_buy":  len(r.Classification.ObservableBuy),
		"observable_sell": len(r.Classification.ObservableSell),
	}

	if j.exportDir != "" {
		path, err := ExportWorkbook(j.exportDir, r)
		if err != nil {
			return err
		}
		fields["workbook"] = path
	}

	j.logger.WithFields(fields).Info("Flow analysis completed")
	return nil
}

// ExportWorkbook writes <dir>/<market>_<YYYYMMDD>.xlsx and returns its path
func ExportWorkbook(dir string, r *contracts.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", r.Market, r.AsOf.Format("20060102")))
	if err := report.WriteWorkbook(r, path); err != nil {
		return "", err
	}
	return path, nil
}
