package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/logger"
)

func TestChunkKey(t *testing.T) {
	key := ChunkKey("stock-analysis/chunks", "chunk_3_a1b2c3d4")
	assert.Equal(t, "stock-analysis/chunks/chunk_3_a1b2c3d4.json", key)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "p/a.json", []byte(`{"a":1}`)))
	require.NoError(t, store.Put(ctx, "p/b.json", []byte(`{"b":2}`)))
	require.NoError(t, store.Put(ctx, "other/c.json", []byte(`{"c":3}`)))

	got, err := store.Get(ctx, "p/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	keys, err := store.List(ctx, "p/")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a.json", "p/b.json"}, keys)

	require.NoError(t, store.Delete(ctx, "p/a.json"))
	_, err = store.Get(ctx, "p/a.json")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op
	require.NoError(t, store.Delete(ctx, "p/a.json"))
}

func TestPublisherStoresRows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	pub := NewPublisher(store, "stock-analysis/chunks", logger.NewNop())

	rows := []contracts.RankedRow{
		{Symbol: "AAPL", Sector: "Technology", BuyScore: 9, ReasonsToBuy: "Strong EPS", Provenance: contracts.ProvenancePrimary},
		{Symbol: "MSFT", Sector: "Technology", BuyScore: 7, ReasonsToBuy: "High margins", Provenance: contracts.ProvenanceSynthetic},
	}

	require.NoError(t, pub.Publish(ctx, "chunk_0_deadbeef", rows))

	payload, err := store.Get(ctx, "stock-analysis/chunks/chunk_0_deadbeef.json")
	require.NoError(t, err)

	var decoded []contracts.RankedRow
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, rows, decoded)
}
