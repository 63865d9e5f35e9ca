package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sudhan/stockpicks/internal/dispatch"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a chunk worker",
	Long: `Drains the dispatch queue: processes chunk jobs (fetch, score,
store) and finalize jobs. Requires DATABASE_URL; several workers can
share one queue.

Example:
  go run ./cmd/stockpicks worker --concurrency 4`,
	RunE: runWorker,
}

var workerConcurrency int

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 2, "jobs handled in parallel")
}

func runWorker(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.queue == nil {
		return fmt.Errorf("worker requires DATABASE_URL")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		a.log.Info("Shutdown signal received")
		cancel()
	}()

	worker := dispatch.NewWorker(a.queue, a.orch, workerConcurrency, a.log)
	worker.Run(ctx)

	return nil
}
