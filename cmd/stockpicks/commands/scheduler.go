package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sudhan/stockpicks/internal/scheduler"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduler daemon",
	Long: `Starts the scheduler and keeps it running.

Registered jobs:
- analyze:  launches the full-universe analysis run
- finalize: backstop aggregation pass for accumulated chunk results

Example:
  go run ./cmd/stockpicks scheduler
  go run ./cmd/stockpicks scheduler --analyze-schedule "0 0 16 * * MON-FRI"`,
	RunE: runScheduler,
}

var (
	analyzeSchedule  string
	finalizeSchedule string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().StringVar(&analyzeSchedule, "analyze-schedule", "", "cron expression for the analyze job")
	schedulerCmd.Flags().StringVar(&finalizeSchedule, "finalize-schedule", "", "cron expression for the finalize job")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.migrate(context.Background()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(scheduler.NewAnalyzeJob(a.orch, analyzeSchedule, a.log)); err != nil {
		return fmt.Errorf("add analyze job: %w", err)
	}
	if err := sched.AddJob(scheduler.NewFinalizeJob(a.agg, finalizeSchedule, a.log)); err != nil {
		return fmt.Errorf("add finalize job: %w", err)
	}

	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()

	return nil
}
