package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/instflow/internal/brain"
	"github.com/wonny/instflow/internal/contracts"
	"github.com/wonny/instflow/internal/s0_data"
	"github.com/wonny/instflow/pkg/config"
	"github.com/wonny/instflow/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "PostgreSQL 관리",
	Long: `데이터베이스 스키마 생성과 연결 상태를 확인합니다.

Subcommands:
  init    - flow / audit 스키마와 테이블 생성 (idempotent)
  ping    - 연결 테스트 및 Connection Pool 통계
  import  - 일별 파일(수급/시세/종목목록)을 DB로 적재 (--source db 용)

Example:
  go run ./cmd/instflow db init
  go run ./cmd/instflow db ping
  go run ./cmd/instflow db import --market TSE`,
}

var (
	dbInitCmd = &cobra.Command{
		Use:   "init",
		Short: "스키마 생성",
		RunE:  runDBInit,
	}

	dbPingCmd = &cobra.Command{
		Use:   "ping",
		Short: "연결 테스트",
		RunE:  runDBPing,
	}

	dbImportCmd = &cobra.Command{
		Use:   "import",
		Short: "일별 파일 DB 적재",
		RunE:  runDBImport,
	}
)

var (
	importMarkets []string
	importForce   bool
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbPingCmd)
	dbCmd.AddCommand(dbImportCmd)

	dbImportCmd.Flags().StringSliceVar(&importMarkets, "market", nil, "markets to import (TSE,OTC; default all)")
	dbImportCmd.Flags().BoolVar(&importForce, "force", false, "re-import even when the latest day is already stored")
}

func openDB(ctx context.Context) (*database.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Failed to load config: %w", err)
	}
	if !cfg.Database.Enabled {
		return nil, nil, fmt.Errorf("DB_ENABLED is false")
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	return db, cfg, nil
}

func runDBInit(cmd *cobra.Command, args []string) error {
	fmt.Println("=== instflow Database Init ===")

	db, _, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("❌ Failed to create schema: %w", err)
	}
	PrintSuccess("Schema ready (flow, audit)")
	return nil
}

func runDBPing(cmd *cobra.Command, args []string) error {
	fmt.Println("=== instflow Database Connection Test ===")

	db, _, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()
	PrintSuccess("Database connection established")

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping database: %w", err)
	}
	PrintSuccess("Ping successful")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println()
	PrintKeyValue("Response", status.ResponseTime.String(), 10)
	PrintKeyValue("Total", fmt.Sprintf("%d", status.TotalConns), 10)
	PrintKeyValue("Idle", fmt.Sprintf("%d", status.IdleConns), 10)
	PrintKeyValue("Acquired", fmt.Sprintf("%d", status.AcquiredConns), 10)
	PrintKeyValue("Max", fmt.Sprintf("%d", status.MaxConns), 10)
	fmt.Println()
	PrintSuccess("All checks passed")
	return nil
}

// maskPassword hides the password part of a connection URL
func maskPassword(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}
	creds := url[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3] + creds[:colon] + ":****" + url[at:]
}

func runDBImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{Source: sourceCSV, Persist: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.db == nil {
		return fmt.Errorf("DB_ENABLED is false")
	}

	markets, err := a.markets(importMarkets)
	if err != nil {
		return err
	}

	src, err := a.sources(sourceCSV)
	if err != nil {
		return err
	}
	persister := brain.NewPersister(a.db.Pool)
	flows := s0_data.NewFlowRepository(a.db.Pool)
	prices := s0_data.NewPriceRepository(a.db.Pool)

	for _, m := range markets {
		batch, err := src.Snapshots.LoadSnapshots(ctx, m, a.strategy.History.LoadDays)
		if err != nil {
			return fmt.Errorf("%s: load snapshots: %w", m, err)
		}
		if len(batch.Snapshots) == 0 {
			PrintWarning(fmt.Sprintf("%s: no day files", m))
			continue
		}

		stored, err := flows.LatestDate(ctx, m)
		if err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}
		if !importForce && !stored.IsZero() && !stored.Before(batch.Snapshots[0].Date) {
			PrintInfo(fmt.Sprintf("%s: up to date (%s)", m, contracts.DateKey(stored)))
			continue
		}
		universe, err := src.Universes.LoadUniverse(ctx, m)
		if err != nil {
			return fmt.Errorf("%s: load universe: %w", m, err)
		}
		if err := persister.RecordInputs(ctx, batch, universe); err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}

		oldest := batch.Snapshots[len(batch.Snapshots)-1].Date
		pb, err := src.Prices.LoadPrices(ctx, m, snapshotCodes(batch), oldest)
		if err != nil {
			return fmt.Errorf("%s: load prices: %w", m, err)
		}
		if err := prices.SavePrices(ctx, m, pb.Prices); err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}

		PrintSuccess(fmt.Sprintf("%s: %d days, %d securities with prices (%d price files skipped)",
			m, len(batch.Snapshots), len(pb.Prices), pb.Skipped))
	}
	return nil
}

// snapshotCodes collects every code seen in the batch, sorted
func snapshotCodes(batch *contracts.SnapshotBatch) []string {
	set := make(map[string]struct{})
	for _, s := range batch.Snapshots {
		for _, r := range s.Records {
			set[r.Code] = struct{}{}
		}
	}
	codes := make([]string, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
