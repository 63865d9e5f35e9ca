package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Publisher writes one chunk's scored rows to durable storage so the
// aggregator can pick them up later
type Publisher struct {
	store  Store
	logger *logger.Logger
	prefix string
}

// NewPublisher creates a publisher writing under the given key prefix
func NewPublisher(store Store, prefix string, log *logger.Logger) *Publisher {
	return &Publisher{
		store:  store,
		logger: log.WithField("module", "storage"),
		prefix: prefix,
	}
}

// Publish stores the rows under the chunk's key. A failed write loses
// only this chunk's contribution to the final ranking, so the caller may
// log the error and keep going.
func (p *Publisher) Publish(ctx context.Context, chunkID string, rows []contracts.RankedRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal chunk %s: %w", chunkID, err)
	}

	key := ChunkKey(p.prefix, chunkID)
	if err := p.store.Put(ctx, key, payload); err != nil {
		p.logger.WithError(err).WithField("chunk_id", chunkID).Error("Failed to store chunk result")
		return err
	}

	p.logger.WithFields(map[string]interface{}{
		"chunk_id": chunkID,
		"key":      key,
		"rows":     len(rows),
	}).Info("Chunk result stored")

	return nil
}

// Prefix returns the key prefix this publisher writes under
func (p *Publisher) Prefix() string {
	return p.prefix
}
