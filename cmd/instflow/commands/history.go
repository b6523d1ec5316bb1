package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/report"
	"github.com/wonny/instflow/internal/s0_data"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [code...]",
	Short: "차트용 수급+시세 히스토리 수집",
	Long: `법인 수급과 일별 시세를 날짜 기준으로 합쳐 종목별 CSV로 저장합니다.

코드를 지정하지 않으면 --scope 기준으로 대상을 고릅니다:
  ranked - 최신일 매수/매도 순위 종목
  all    - 유니버스 전체

Example:
  go run ./cmd/instflow history 0056 2330 --market TSE
  go run ./cmd/instflow history --market OTC --scope all`,
	RunE: runHistory,
}

var (
	historyMarket    string
	historyScope     string
	historySource    string
	historyExportDir string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyMarket, "market", string(contracts.MarketTSE), "market (TSE|OTC)")
	historyCmd.Flags().StringVar(&historyScope, "scope", "", "target scope when no code is given (ranked|all; default collector.scope)")
	historyCmd.Flags().StringVar(&historySource, "source", sourceCSV, "input source (csv|db)")
	historyCmd.Flags().StringVar(&historyExportDir, "export-dir", "", "output directory (default FLOW_EXPORT_DIR)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	market, err := contracts.ParseMarket(historyMarket)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{Source: historySource})
	if err != nil {
		return err
	}
	defer a.Close()

	scope := contracts.Scope(historyScope)
	if scope == "" {
		scope = contracts.Scope(a.strategy.Collector.Scope)
	}
	if !scope.Valid() {
		return fmt.Errorf("unknown scope %q (want %s or %s)", scope, contracts.ScopeRanked, contracts.ScopeAll)
	}

	exportDir := historyExportDir
	if exportDir == "" {
		exportDir = a.cfg.Flow.ExportDir
	}

	codes, err := canonicalCodes(args)
	if err != nil {
		return err
	}

	histories, err := a.engine.CollectHistory(ctx, market, scope, codes)
	if err != nil {
		return fmt.Errorf("collect history: %w", err)
	}
	if len(histories) == 0 {
		PrintWarning("No history collected")
		return nil
	}

	paths, err := report.ExportHistories(exportDir, market, histories)
	if err != nil {
		return err
	}

	fmt.Println()
	widths := []int{8, 14, 8}
	PrintTableHeader([]string{"Code", "Name", "Days"}, widths)
	for _, h := range histories {
		PrintTableRow([]string{h.Code, h.Name, strconv.Itoa(len(h.Records))}, widths)
	}
	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d files written to %s", len(paths), exportDir))
	return nil
}

// canonicalCodes normalizes user-supplied codes ("56" → "0056"), rejecting
// codes that normalize to empty
func canonicalCodes(args []string) ([]string, error) {
	codes := make([]string, 0, len(args))
	for _, arg := range args {
		code := s0_data.NormalizeCode(arg)
		if code == "" {
			return nil, fmt.Errorf("invalid code %q", arg)
		}
		codes = append(codes, code)
	}
	return codes, nil
}
