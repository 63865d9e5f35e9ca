package orchestrator

import (
	"context"
	"fmt"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/internal/dispatch"
)

// Handle executes one dispatched payload. It is the worker-side entry
// point matching dispatch.Handler.
func (o *Orchestrator) Handle(ctx context.Context, payload dispatch.Payload) error {
	switch payload.Operation {
	case dispatch.OpProcessChunk:
		return o.ProcessChunk(ctx, contracts.ChunkJob{ChunkID: payload.ChunkID, Stocks: payload.Stocks})
	case dispatch.OpFinalizeResults:
		_, err := o.finalizer.Finalize(ctx)
		return err
	default:
		return fmt.Errorf("unknown operation %q", payload.Operation)
	}
}

// ProcessChunk runs one chunk end to end: fetch in parallel, score, and
// publish the rows for the aggregator. An empty result set is still
// published so the chunk's completion is visible.
func (o *Orchestrator) ProcessChunk(ctx context.Context, job contracts.ChunkJob) error {
	if job.ChunkID == "" {
		return fmt.Errorf("chunk id missing")
	}

	results := o.processor.Process(ctx, job.Stocks)
	rows := o.scoreBatch(ctx, results)
	if rows == nil {
		rows = []contracts.RankedRow{}
	}

	if err := o.publisher.Publish(ctx, job.ChunkID, rows); err != nil {
		return fmt.Errorf("publish chunk %s: %w", job.ChunkID, err)
	}

	o.logger.WithFields(map[string]interface{}{
		"chunk_id": job.ChunkID,
		"stocks":   len(job.Stocks),
		"rows":     len(rows),
	}).Info("Chunk completed")

	return nil
}
