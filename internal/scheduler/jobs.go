package scheduler

import (
	"context"
	"fmt"

	"github.com/sudhan/stockpicks/internal/aggregator"
	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/internal/universe"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Runner starts one analysis run
type Runner interface {
	Run(ctx context.Context, desc universe.Descriptor) (contracts.RunReport, error)
}

// Finalizer merges stored chunk results and ships the report
type Finalizer interface {
	Finalize(ctx context.Context) (aggregator.Summary, error)
}

// AnalyzeJob kicks off the full-universe analysis run on a schedule
type AnalyzeJob struct {
	runner   Runner
	logger   *logger.Logger
	schedule string
}

// NewAnalyzeJob creates the scheduled analysis job
func NewAnalyzeJob(runner Runner, schedule string, log *logger.Logger) *AnalyzeJob {
	if schedule == "" {
		schedule = "0 0 16 * * MON-FRI" // weekdays after market close
	}
	return &AnalyzeJob{
		runner:   runner,
		logger:   log.WithField("job", "analyze"),
		schedule: schedule,
	}
}

func (j *AnalyzeJob) Name() string     { return "analyze" }
func (j *AnalyzeJob) Schedule() string { return j.schedule }

func (j *AnalyzeJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx, universe.Descriptor{})
	if err != nil {
		return fmt.Errorf("analysis run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": report.RunID,
		"mode":   report.Mode,
	}).Info("Scheduled analysis launched")

	return nil
}

// FinalizeJob merges whatever chunk results have accumulated and mails
// the report. It backstops the per-run delayed finalize.
type FinalizeJob struct {
	finalizer Finalizer
	logger    *logger.Logger
	schedule  string
}

// NewFinalizeJob creates the scheduled finalize job
func NewFinalizeJob(finalizer Finalizer, schedule string, log *logger.Logger) *FinalizeJob {
	if schedule == "" {
		schedule = "0 30 16 * * MON-FRI"
	}
	return &FinalizeJob{
		finalizer: finalizer,
		logger:    log.WithField("job", "finalize"),
		schedule:  schedule,
	}
}

func (j *FinalizeJob) Name() string     { return "finalize" }
func (j *FinalizeJob) Schedule() string { return j.schedule }

func (j *FinalizeJob) Run(ctx context.Context) error {
	summary, err := j.finalizer.Finalize(ctx)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"chunks_merged": summary.ChunksMerged,
		"total_rows":    summary.TotalRows,
		"email_sent":    summary.EmailSent,
	}).Info("Scheduled finalize completed")

	return nil
}
