package aggregator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/internal/storage"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Sender delivers the final report
type Sender interface {
	SendReport(ctx context.Context, subject, body string, attachment []byte) error
}

// Summary describes one finalize pass
type Summary struct {
	ChunksMerged  int `json:"chunks_merged"`
	ChunksSkipped int `json:"chunks_skipped"`
	TotalRows     int `json:"total_rows"`
	TopRows       int `json:"top_rows"`
	SyntheticRows int `json:"synthetic_rows"`

	EmailSent bool `json:"email_sent"`
	CleanedUp bool `json:"cleaned_up"`
}

// Aggregator merges stored chunk results into the final ranking and
// mails it out
// ⭐ SSOT: 최종 집계와 발송은 여기서만
type Aggregator struct {
	store  storage.Store
	sender Sender
	logger *logger.Logger
	prefix string
	topN   int
}

// New creates an aggregator reading chunk results under the given prefix
func New(store storage.Store, sender Sender, prefix string, topN int, log *logger.Logger) *Aggregator {
	if topN <= 0 {
		topN = 25
	}
	return &Aggregator{
		store:  store,
		sender: sender,
		logger: log.WithField("module", "aggregator"),
		prefix: prefix,
		topN:   topN,
	}
}

// Finalize merges every stored chunk, ranks the union, emails the top
// rows as CSV, and cleans up the merged objects. A chunk that cannot be
// read or decoded is skipped with a warning: partial results still ship.
// Cleanup only happens after a successful send so a failed delivery can
// be retried against the same data.
func (a *Aggregator) Finalize(ctx context.Context) (Summary, error) {
	var summary Summary

	keys, err := a.store.List(ctx, a.prefix)
	if err != nil {
		return summary, fmt.Errorf("list chunk results: %w", err)
	}

	var rows []contracts.RankedRow
	for _, key := range keys {
		chunkRows, err := a.readChunk(ctx, key)
		if err != nil {
			a.logger.WithError(err).WithField("key", key).Warn("Skipping unreadable chunk result")
			summary.ChunksSkipped++
			continue
		}
		rows = append(rows, chunkRows...)
		summary.ChunksMerged++
	}

	summary.TotalRows = len(rows)
	if len(rows) == 0 {
		a.logger.Warn("No chunk results to aggregate")
		return summary, nil
	}

	top := Rank(rows, a.topN)
	summary.TopRows = len(top)
	summary.SyntheticRows = countSynthetic(top)

	csvData, err := BuildCSV(top, SectorHeader)
	if err != nil {
		return summary, fmt.Errorf("build csv: %w", err)
	}

	subject := fmt.Sprintf("Top %d Stock Picks - %d stocks analyzed", len(top), len(rows))
	body := buildBody(len(top), len(rows), summary.SyntheticRows)

	if err := a.sender.SendReport(ctx, subject, body, csvData); err != nil {
		// Keep the stored chunks so a retry can rebuild the same report
		return summary, fmt.Errorf("send report: %w", err)
	}
	summary.EmailSent = true

	for _, key := range keys {
		if err := a.store.Delete(ctx, key); err != nil {
			a.logger.WithError(err).WithField("key", key).Warn("Failed to clean up chunk result")
		}
	}
	summary.CleanedUp = true

	a.logger.WithFields(map[string]interface{}{
		"chunks_merged":  summary.ChunksMerged,
		"chunks_skipped": summary.ChunksSkipped,
		"total_rows":     summary.TotalRows,
		"top_rows":       summary.TopRows,
	}).Info("Finalize completed")

	return summary, nil
}

// readChunk loads and decodes one stored chunk result
func (a *Aggregator) readChunk(ctx context.Context, key string) ([]contracts.RankedRow, error) {
	payload, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var rows []contracts.RankedRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode chunk result: %w", err)
	}
	return rows, nil
}

// buildBody writes the plain-text email body
func buildBody(top, total, synthetic int) string {
	body := fmt.Sprintf(
		"Attached are the top %d stock picks out of %d analyzed.\n\nRanked by BuyScore; see the CSV for reasons per pick.\n",
		top, total,
	)
	if synthetic > 0 {
		body += fmt.Sprintf("\nNote: %d of the top picks were scored on synthetic fallback data.\n", synthetic)
	}
	return body
}
