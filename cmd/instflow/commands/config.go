package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/instflow/internal/strategyconfig"
	"github.com/wonny/instflow/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정 확인",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "엔진 파라미터 검증",
	Long: `환경 설정과 엔진 파라미터 YAML을 읽어 검증하고 해시를 출력합니다.
검증 오류는 실패, 권장 위반은 경고로 표시합니다.

Example:
  go run ./cmd/instflow config check
  go run ./cmd/instflow config check --strategy config/strategy/inst_flow_v1.yaml`,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.Flow.StrategyPath
	if strategyFile != "" {
		path = strategyFile
	}

	fmt.Println("=== instflow Config Check ===")
	fmt.Println()
	PrintKeyValue("ENV", cfg.Env, 14)
	PrintKeyValue("Data dir", orDefault(dataDir, cfg.Flow.DataDir), 14)
	PrintKeyValue("Export dir", cfg.Flow.ExportDir, 14)
	PrintKeyValue("Schedule", cfg.Flow.Schedule, 14)
	PrintKeyValue("Database", strconv.FormatBool(cfg.Database.Enabled), 14)
	PrintKeyValue("Redis", strconv.FormatBool(cfg.Redis.Enabled), 14)
	PrintKeyValue("Parameters", orDefault(path, "(built-in)"), 14)
	fmt.Println()

	strategy, _, err := strategyconfig.Load(path)
	if err != nil {
		var verr strategyconfig.ValidationError
		if errors.As(err, &verr) {
			PrintError(fmt.Sprintf("%s: %s", verr.Field, verr.Message))
		}
		return err
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return err
	}

	PrintKeyValue("Strategy", strategy.Meta.StrategyID+" v"+strategy.Meta.Version, 14)
	PrintKeyValue("Hash", shortHash(hash), 14)
	PrintKeyValue("Top lists", fmt.Sprintf("buy %d / sell %d / tracked %d", strategy.Ranking.BuyCount, strategy.Ranking.SellCount, strategy.Ranking.TrackedCount), 14)
	PrintKeyValue("Z-score", fmt.Sprintf("σ ≥ %.1f, window %d, min %d days", strategy.Statistics.SigmaThreshold, strategy.Statistics.WindowDays, strategy.Statistics.MinDays), 14)
	PrintKeyValue("Aggregate", fmt.Sprintf("%d days, %s, scope %s", strategy.Aggregate.Days, strategy.Aggregate.Mode, strategy.Aggregate.Scope), 14)

	warnings := strategyconfig.Warn(strategy)
	if len(warnings) > 0 {
		items := make([]string, len(warnings))
		for i, w := range warnings {
			items[i] = fmt.Sprintf("[%s] %s", w.Code, w.Message)
		}
		PrintWarning(fmt.Sprintf("%d warnings", len(warnings)))
		PrintList(items)
		fmt.Println()
	}

	PrintSuccess("Engine parameters valid")
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
