package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/instflow/internal/brain"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/report"
	"github.com/wonny/instflow/internal/scheduler/jobs"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "수급 분석 실행",
	Long: `시장별로 엔진을 한 번 실행하고 결과를 출력합니다.

이 명령어는:
- 최근 일별 파일 로드 (S0) 및 유니버스 필터 (S1)
- 일별 순위, 히스토리 누적, z-score 계산 (S2)
- 신규 진입 / 관찰 종목 분류 (S3)
- 누적 리더보드 및 매수·매도 교차 종목 (S4)
- 결과 캐시/DB 저장, 선택적으로 xlsx 및 히스토리 CSV 내보내기

Example:
  go run ./cmd/instflow analyze
  go run ./cmd/instflow analyze --market TSE --export --history
  go run ./cmd/instflow analyze --source db --dry-run`,
	RunE: runAnalyze,
}

var (
	analyzeMarkets   []string
	analyzeSource    string
	analyzeExport    bool
	analyzeHistory   bool
	analyzeExportDir string
	analyzeDryRun    bool
	analyzeNoPersist bool
	analyzeTop       int
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVar(&analyzeMarkets, "market", nil, "markets to analyze (TSE,OTC; default all)")
	analyzeCmd.Flags().StringVar(&analyzeSource, "source", sourceCSV, "input source (csv|db)")
	analyzeCmd.Flags().BoolVar(&analyzeExport, "export", false, "write the report workbook (.xlsx)")
	analyzeCmd.Flags().BoolVar(&analyzeHistory, "history", false, "write merged history CSVs of the ranked securities")
	analyzeCmd.Flags().StringVar(&analyzeExportDir, "export-dir", "", "output directory (default FLOW_EXPORT_DIR)")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "analyze only, publish nothing")
	analyzeCmd.Flags().BoolVar(&analyzeNoPersist, "no-persist", false, "skip PostgreSQL even when DB_ENABLED")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 10, "rows per table in the console summary")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{
		Source:  analyzeSource,
		Persist: !analyzeNoPersist,
		DryRun:  analyzeDryRun,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	markets, err := a.markets(analyzeMarkets)
	if err != nil {
		return err
	}

	exportDir := analyzeExportDir
	if exportDir == "" {
		exportDir = a.cfg.Flow.ExportDir
	}

	failed := 0
	for _, market := range markets {
		PrintRunHeader(RunMetadata{
			Title:     fmt.Sprintf("Institutional Flow Analysis · %s %s", market, market.Label()),
			Tag:       "Analyze",
			Market:    string(market),
			Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		})

		result, err := a.engine.Run(ctx, brain.RunConfig{Market: market, DryRun: analyzeDryRun})
		if err != nil {
			PrintError(fmt.Sprintf("%s: %v", market, err))
			failed++
			continue
		}

		printReport(result, analyzeTop)

		if analyzeExport {
			path, err := jobs.ExportWorkbook(exportDir, result.Report)
			if err != nil {
				return err
			}
			PrintSuccess("Workbook: " + path)
		}

		if analyzeHistory {
			histories, err := a.engine.CollectHistory(ctx, market, contracts.ScopeRanked, nil)
			if err != nil {
				return fmt.Errorf("collect history: %w", err)
			}
			paths, err := report.ExportHistories(exportDir, market, histories)
			if err != nil {
				return err
			}
			PrintSuccess(fmt.Sprintf("History CSV: %d files in %s", len(paths), exportDir))
		}

		fmt.Println()
		PrintSuccess(fmt.Sprintf("%s completed in %.2fs (%s)", market, result.Duration.Seconds(),
			strings.Join(result.CompletedStages, " → ")))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d markets failed", failed, len(markets))
	}
	return nil
}

// printReport prints the console summary of one run
func printReport(result *brain.RunResult, top int) {
	r := result.Report

	fmt.Println()
	PrintKeyValue("Run ID", r.RunID, 12)
	PrintKeyValue("As of", contracts.DateKey(r.AsOf), 12)
	PrintKeyValue("Days loaded", strconv.Itoa(r.Quality.FilesProcessed), 12)
	PrintKeyValue("Days skipped", strconv.Itoa(r.Quality.FilesSkipped), 12)
	PrintKeyValue("Coverage", fmt.Sprintf("%.1f%%", r.Quality.Coverage*100), 12)
	PrintKeyValue("Anomalies", strconv.Itoa(r.AnomalyCount()), 12)
	PrintKeyValue("Config", shortHash(r.ConfigHash), 12)

	if !r.QualityPassed {
		PrintWarning("Quality gate: " + strings.Join(r.QualityIssues, "; "))
	}

	if latest, ok := r.Latest(); ok {
		printRanked("Daily buy (買超)", latest.Buy, top)
		printRanked("Daily sell (賣超)", latest.Sell, top)
	}

	printBoard(fmt.Sprintf("Aggregate buy · %d days", len(r.Aggregate.Days)), r.Aggregate.Buy, top)
	printBoard(fmt.Sprintf("Aggregate sell · %d days", len(r.Aggregate.Days)), r.Aggregate.Sell, top)
	printCrossListed(r.Aggregate.CrossListings, top)

	c := r.Classification
	fmt.Println()
	PrintSeparator()
	fmt.Printf("New buy  : %s\n", joinOrDash(c.NewBuy))
	fmt.Printf("New sell : %s\n", joinOrDash(c.NewSell))
	printObservables("Observable buy", c.Observables(contracts.SideBuy))
	printObservables("Observable sell", c.Observables(contracts.SideSell))
}

func printRanked(title string, entries []contracts.RankedEntry, top int) {
	fmt.Println()
	fmt.Println(title)
	widths := []int{5, 8, 14, 12}
	PrintTableHeader([]string{"Rank", "Code", "Name", "Net (lots)"}, widths)
	for i, e := range entries {
		if i >= top {
			break
		}
		PrintTableRow([]string{strconv.Itoa(e.Rank), e.Code, e.Name, formatLots(e.NetVolume)}, widths)
	}
}

func printBoard(title string, board contracts.Leaderboard, top int) {
	fmt.Println()
	fmt.Printf("%s [%s]\n", title, board.Mode)
	widths := []int{8, 14, 12, 5, 6}
	PrintTableHeader([]string{"Code", "Name", "Sum (lots)", "Days", "Cross"}, widths)
	for i, e := range board.Entries {
		if i >= top {
			break
		}
		cross := ""
		if e.CrossListed {
			cross = "★"
		}
		PrintTableRow([]string{e.Code, e.Name, formatLots(e.Sum), strconv.Itoa(e.Appearances), cross}, widths)
	}
}

func printCrossListed(listings []contracts.CrossListing, top int) {
	fmt.Println()
	fmt.Println("Cross-listed (買賣交錯)")
	widths := []int{8, 14, 12, 12, 12}
	PrintTableHeader([]string{"Code", "Name", "Buy days", "Sell days", "Net (lots)"}, widths)
	for i, c := range listings {
		if i >= top {
			break
		}
		PrintTableRow([]string{c.Code, c.Name, strings.Join(c.BuyDays, ","), strings.Join(c.SellDays, ","), formatLots(c.NetSum)}, widths)
	}
}

func printObservables(title string, obs []contracts.Observation) {
	fmt.Println()
	fmt.Printf("%s (%d)\n", title, len(obs))
	if len(obs) == 0 {
		return
	}
	widths := []int{8, 14, 12, 8, 24}
	PrintTableHeader([]string{"Code", "Name", "Net (lots)", "Z", "Reasons"}, widths)
	for _, o := range obs {
		z := "-"
		if o.HasStats {
			z = strconv.FormatFloat(o.ZScore, 'f', 2, 64)
		}
		PrintTableRow([]string{o.Code, o.Name, formatLots(o.NetVolume), z, o.ReasonText()}, widths)
	}
}

func joinOrDash(codes []string) string {
	if len(codes) == 0 {
		return "-"
	}
	return strings.Join(codes, ", ")
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
