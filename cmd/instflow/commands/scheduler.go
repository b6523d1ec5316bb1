package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/instflow/internal/scheduler"
	"github.com/wonny/instflow/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `시장별 일일 수급 분석 작업을 스케줄합니다.

등록되는 작업:
- flow_analysis_tse: FLOW_SCHEDULE (기본 평일 18:30, 전략 timezone 기준)
- flow_analysis_otc: FLOW_SCHEDULE

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/instflow scheduler start --run-now
  go run ./cmd/instflow scheduler list
  go run ./cmd/instflow scheduler run flow_analysis_tse`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.
분석 결과는 DB(DB_ENABLED), Redis, FLOW_EXPORT_DIR 워크북으로 저장됩니다.

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

var (
	schedulerRunNow   bool
	schedulerNoExport bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerStartCmd.Flags().BoolVar(&schedulerRunNow, "run-now", false, "run every job once at startup")
	schedulerCmd.PersistentFlags().BoolVar(&schedulerNoExport, "no-export", false, "skip the workbook export")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== instflow Scheduler ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	if schedulerRunNow {
		for _, name := range sched.GetAllJobs() {
			// 실패해도 스케줄은 계속 등록
			res, _ := sched.RunNow(ctx, name)
			printJobResult(res)
		}
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	printJobTable(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	// 다음 실행 시각은 cron이 시작되어야 계산됨
	sched.Start()
	defer sched.Stop()

	fmt.Println("Registered jobs:")
	printJobTable(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	res, err := sched.RunNow(cmd.Context(), jobName)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		return err
	}
	printJobResult(res)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	return nil
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context(), appOptions{Source: sourceCSV, Persist: true})
	if err != nil {
		return nil, nil, err
	}

	loc := time.Local
	if tz := a.strategy.Meta.Timezone; tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			a.Close()
			return nil, nil, fmt.Errorf("load timezone %s: %w", tz, err)
		}
		loc = l
	}

	sched := scheduler.New(a.log, scheduler.WithLocation(loc), scheduler.WithRetry(2, 5*time.Minute))

	exportDir := a.cfg.Flow.ExportDir
	if schedulerNoExport {
		exportDir = ""
	}

	markets, err := a.markets(nil)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	for _, m := range markets {
		job := jobs.NewFlowAnalysisJob(a.engine, m, a.cfg.Flow.Schedule, exportDir, a.log)
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}

func printJobTable(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	widths := []int{20, 18, 20}
	PrintTableHeader([]string{"Job", "Schedule", "Next run"}, widths)
	for _, name := range sched.GetAllJobs() {
		st := stats[name]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04")
		}
		PrintTableRow([]string{name, st.Schedule, next}, widths)
	}
}

func printJobResult(res scheduler.JobResult) {
	if res.Success {
		PrintSuccess(fmt.Sprintf("%s completed in %.2fs", res.JobName, res.Duration.Seconds()))
		return
	}
	PrintError(fmt.Sprintf("%s failed after %d attempts: %s", res.JobName, res.Attempts, res.Error))
}
