package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudhan/stockpicks/internal/aggregator"
	"github.com/sudhan/stockpicks/internal/chunk"
	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/internal/dispatch"
	"github.com/sudhan/stockpicks/internal/storage"
	"github.com/sudhan/stockpicks/internal/universe"
	"github.com/sudhan/stockpicks/pkg/config"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Scorer scores a batch of fundamentals
type Scorer interface {
	Score(ctx context.Context, results map[string]contracts.StockFundamentals) (map[string]contracts.ScoreResult, error)
}

// Finalizer merges stored chunk results and ships the report
type Finalizer interface {
	Finalize(ctx context.Context) (aggregator.Summary, error)
}

// FinalizePlanner arranges for finalization to run after a delay
type FinalizePlanner interface {
	PlanFinalize(delay time.Duration)
}

// Orchestrator decides the sizing regime for a run and drives it.
// Small universes run in-process end to end; large ones fan out as
// fire-and-forget chunk jobs that the aggregator collects later.
// ⭐ SSOT: 실행 흐름 결정은 여기서만
type Orchestrator struct {
	loader    *universe.Loader
	fetcher   chunk.FundamentalsFetcher
	processor *chunk.Processor
	scorer    Scorer
	publisher *storage.Publisher
	invoker   dispatch.Invoker
	finalizer Finalizer
	planner   FinalizePlanner // nil when no delayed finalize is wanted
	sender    aggregator.Sender
	runs      RunStore

	cfg    config.PipelineConfig
	logger *logger.Logger
	now    func() time.Time
}

// New creates an orchestrator. planner may be nil.
func New(
	loader *universe.Loader,
	fetcher chunk.FundamentalsFetcher,
	processor *chunk.Processor,
	scorer Scorer,
	publisher *storage.Publisher,
	invoker dispatch.Invoker,
	finalizer Finalizer,
	planner FinalizePlanner,
	sender aggregator.Sender,
	runs RunStore,
	cfg config.PipelineConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		loader:    loader,
		fetcher:   fetcher,
		processor: processor,
		scorer:    scorer,
		publisher: publisher,
		invoker:   invoker,
		finalizer: finalizer,
		planner:   planner,
		sender:    sender,
		runs:      runs,
		cfg:       cfg,
		logger:    log.WithField("module", "orchestrator"),
		now:       time.Now,
	}
}

// Run resolves the universe and executes the run in the regime its size
// calls for. The distributed regime returns as soon as every chunk is
// dispatched; the sequential regime returns after the report is sent.
func (o *Orchestrator) Run(ctx context.Context, desc universe.Descriptor) (contracts.RunReport, error) {
	started := o.now()
	runID := newRunID()

	records, err := o.loader.Load(ctx, desc)
	if err != nil {
		return contracts.RunReport{}, fmt.Errorf("load universe: %w", err)
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":        runID,
		"universe_size": len(records),
	}).Info("Run started")

	var report contracts.RunReport
	if len(records) <= o.cfg.SequentialThreshold {
		report, err = o.runSequential(ctx, runID, records)
	} else {
		report, err = o.runDistributed(ctx, runID, records)
	}
	if err != nil {
		return report, err
	}

	report.StartedAt = started
	report.Duration = o.now().Sub(started).String()

	if err := o.runs.Save(ctx, report); err != nil {
		o.logger.WithError(err).WithField("run_id", runID).Warn("Failed to record run")
	}

	return report, nil
}

// runDistributed partitions the universe and dispatches one job per
// chunk, pacing the dispatches. A chunk that fails to dispatch is logged
// and skipped; the rest of the run proceeds without it.
func (o *Orchestrator) runDistributed(ctx context.Context, runID string, records []contracts.StockRecord) (contracts.RunReport, error) {
	chunks := partition(records, o.cfg.ChunkSize)

	launched := 0
	for i, part := range chunks {
		if i > 0 && o.cfg.DispatchDelay > 0 {
			select {
			case <-ctx.Done():
				return contracts.RunReport{}, ctx.Err()
			case <-time.After(o.cfg.DispatchDelay):
			}
		}

		chunkID := fmt.Sprintf("chunk_%d_%s", i, uuid.NewString()[:8])
		payload := dispatch.Payload{
			Operation: dispatch.OpProcessChunk,
			ChunkID:   chunkID,
			Stocks:    part,
		}
		if err := o.invoker.Enqueue(ctx, payload); err != nil {
			o.logger.WithError(err).WithField("chunk_id", chunkID).Error("Failed to dispatch chunk")
			continue
		}
		launched++
	}

	estimate := time.Duration(len(chunks)) * o.cfg.ChunkEstimate
	if estimate > o.cfg.MaxEstimate {
		estimate = o.cfg.MaxEstimate
	}
	if o.planner != nil && launched > 0 {
		o.planner.PlanFinalize(estimate)
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":   runID,
		"chunks":   len(chunks),
		"launched": launched,
		"estimate": estimate,
	}).Info("Chunks dispatched")

	return contracts.RunReport{
		RunID:          runID,
		Mode:           contracts.RunModeDistributed,
		UniverseSize:   len(records),
		ChunksExpected: len(chunks),
		ChunksLaunched: launched,
		EstimatedDone:  o.now().Add(estimate),
		Message:        fmt.Sprintf("dispatched %d of %d chunks", launched, len(chunks)),
	}, nil
}

// runSequential fetches fundamentals one stock at a time with a
// politeness delay, scores them in small batches, and mails the ranking
// directly. No intermediate storage is involved.
func (o *Orchestrator) runSequential(ctx context.Context, runID string, records []contracts.StockRecord) (contracts.RunReport, error) {
	var rows []contracts.RankedRow
	processed := 0

	for batchStart := 0; batchStart < len(records); batchStart += o.cfg.BatchSize {
		if batchStart > 0 && o.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return contracts.RunReport{}, ctx.Err()
			case <-time.After(o.cfg.BatchDelay):
			}
		}

		batchEnd := batchStart + o.cfg.BatchSize
		if batchEnd > len(records) {
			batchEnd = len(records)
		}
		batch := records[batchStart:batchEnd]

		results := make(map[string]contracts.StockFundamentals, len(batch))
		for i, stock := range batch {
			if i > 0 && o.cfg.FetchDelay > 0 {
				select {
				case <-ctx.Done():
					return contracts.RunReport{}, ctx.Err()
				case <-time.After(o.cfg.FetchDelay):
				}
			}

			data := o.fetcher.Fetch(ctx, stock.Symbol)
			processed++
			if !data.Eligible() {
				continue
			}
			results[stock.Symbol] = contracts.StockFundamentals{Sector: stock.Sector, Data: data}
		}

		rows = append(rows, o.scoreBatch(ctx, results)...)
	}

	top := aggregator.Rank(rows, o.cfg.TopN)

	csvData, err := aggregator.BuildCSV(top, aggregator.IndustryHeader)
	if err != nil {
		return contracts.RunReport{}, fmt.Errorf("build csv: %w", err)
	}

	subject := fmt.Sprintf("Top %d Stock Buy Picks (Real Data)", len(top))
	body := fmt.Sprintf("Attached are the top %d stock picks out of %d analyzed.\n", len(top), len(rows))
	if err := o.sender.SendReport(ctx, subject, body, csvData); err != nil {
		return contracts.RunReport{}, fmt.Errorf("send report: %w", err)
	}

	return contracts.RunReport{
		RunID:          runID,
		Mode:           contracts.RunModeSequential,
		UniverseSize:   len(records),
		ResultsCount:   len(top),
		TotalProcessed: processed,
		Message:        fmt.Sprintf("analyzed %d stocks, emailed top %d", processed, len(top)),
	}, nil
}

// scoreBatch scores one batch and renders rows. Symbols the oracle did
// not answer for get a zero score so they still appear in the union.
func (o *Orchestrator) scoreBatch(ctx context.Context, results map[string]contracts.StockFundamentals) []contracts.RankedRow {
	if len(results) == 0 {
		return nil
	}

	scores, err := o.scorer.Score(ctx, results)
	if err != nil {
		o.logger.WithError(err).Warn("Scoring failed, recording zero scores for batch")
		scores = map[string]contracts.ScoreResult{}
	}

	rows := make([]contracts.RankedRow, 0, len(results))
	for symbol, sf := range results {
		rows = append(rows, contracts.NewRankedRow(symbol, sf.Sector, scores[symbol], sf.Data.Provenance))
	}
	return rows
}

// partition splits records into chunks of at most size
func partition(records []contracts.StockRecord, size int) [][]contracts.StockRecord {
	if size <= 0 {
		size = 50
	}
	var chunks [][]contracts.StockRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

// newRunID builds a short unique run identifier
func newRunID() string {
	return "run_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
