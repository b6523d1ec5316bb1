package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/instflow/internal/api"
	"github.com/wonny/instflow/internal/api/handlers"
	"github.com/wonny/instflow/internal/brain"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `최신 분석 결과를 제공하는 읽기 전용 REST API 서버를 시작합니다.

결과는 메모리 → Redis(REDIS_ENABLED) → PostgreSQL(DB_ENABLED) 순으로 찾고,
--analyze 를 주면 시작 시 모든 시장을 한 번 분석합니다.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/flow/{market}/report
  GET  /api/flow/{market}/leaderboard/{side}
  GET  /api/flow/{market}/crosslisted
  GET  /api/flow/{market}/observable?side=buy|sell
  GET  /api/flow/{market}/rankings?date=YYYY-MM-DD
  GET  /api/flow/{market}/history/{code}

Example:
  go run ./cmd/instflow api
  go run ./cmd/instflow api --port 8080 --analyze`,
	RunE: runAPIServer,
}

var (
	apiPort    string
	apiAnalyze bool
	apiSource  string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
	apiCmd.Flags().BoolVar(&apiAnalyze, "analyze", false, "run the analysis of every market before serving")
	apiCmd.Flags().StringVar(&apiSource, "source", sourceCSV, "input source (csv|db)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== instflow API Server ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{Source: apiSource, Persist: apiAnalyze, Archive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	if apiAnalyze {
		warmUp(ctx, a)
	}

	flowHandler := handlers.NewFlowHandler(a.reports, a.engine, a.cache, a.log.Component("handler"))
	router := api.NewRouter(flowHandler, a.metrics, a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}

// warmUp runs every market once so the report cache is populated.
// 실패한 시장은 404로 응답하므로 서버 시작은 막지 않음
func warmUp(ctx context.Context, a *app) {
	markets, err := a.markets(nil)
	if err != nil {
		a.log.WithError(err).Warn("No markets to analyze")
		return
	}
	for _, m := range markets {
		if _, err := a.engine.Run(ctx, brain.RunConfig{Market: m}); err != nil {
			PrintWarning(fmt.Sprintf("%s analysis failed: %v", m, err))
			continue
		}
		PrintSuccess(fmt.Sprintf("%s report ready", m))
	}
}
