package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/logger"
)

func TestPayloadWireFormat(t *testing.T) {
	payload := Payload{
		Operation: OpProcessChunk,
		ChunkID:   "chunk_0_a1b2c3d4",
		Stocks: []contracts.StockRecord{
			{Symbol: "AAPL", Sector: "Technology"},
		},
	}

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"operation": "process_chunk",
		"chunk_id": "chunk_0_a1b2c3d4",
		"stocks": [{"Symbol": "AAPL", "Sector": "Technology"}]
	}`, string(body))
}

func TestPayloadOmitsEmptyFields(t *testing.T) {
	body, err := json.Marshal(Payload{Operation: OpFinalizeResults})
	require.NoError(t, err)
	assert.JSONEq(t, `{"operation": "finalize_results"}`, string(body))
}

func TestLocalInvokerRunsHandler(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	handler := HandlerFunc(func(ctx context.Context, payload Payload) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, payload.ChunkID)
		return nil
	})

	inv := NewLocalInvoker(handler, logger.NewNop())
	require.NoError(t, inv.Enqueue(context.Background(), Payload{Operation: OpProcessChunk, ChunkID: "chunk_0_x"}))
	require.NoError(t, inv.Enqueue(context.Background(), Payload{Operation: OpProcessChunk, ChunkID: "chunk_1_y"}))
	inv.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"chunk_0_x", "chunk_1_y"}, seen)
}

func TestLocalInvokerReturnsBeforeHandlerFinishes(t *testing.T) {
	release := make(chan struct{})
	handler := HandlerFunc(func(ctx context.Context, payload Payload) error {
		<-release
		return nil
	})

	inv := NewLocalInvoker(handler, logger.NewNop())
	err := inv.Enqueue(context.Background(), Payload{Operation: OpProcessChunk})
	require.NoError(t, err, "enqueue must not block on the handler")

	close(release)
	inv.Wait()
}
