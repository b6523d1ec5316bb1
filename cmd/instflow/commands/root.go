package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	dataDir      string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "instflow",
	Short: "Institutional flow analysis engine",
	Long: `instflow Unified CLI

上市/上櫃 三大法人 買賣超 분석 엔진.
일별 파일 로드 → 유니버스 → 순위/통계 → 관찰 종목 → 누적 리더보드.

Usage:
  go run ./cmd/instflow [command]

Examples:
  go run ./cmd/instflow analyze --market TSE --export
  go run ./cmd/instflow history 0056 2330 --market TSE
  go run ./cmd/instflow api
  go run ./cmd/instflow scheduler start
  go run ./cmd/instflow db init`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "engine parameter YAML (default FLOW_STRATEGY_PATH, else built-in)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "day-file root (default FLOW_DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
