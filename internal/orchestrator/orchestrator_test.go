package orchestrator

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudhan/stockpicks/internal/aggregator"
	"github.com/sudhan/stockpicks/internal/chunk"
	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/internal/dispatch"
	"github.com/sudhan/stockpicks/internal/storage"
	"github.com/sudhan/stockpicks/internal/universe"
	"github.com/sudhan/stockpicks/pkg/config"
	"github.com/sudhan/stockpicks/pkg/httputil"
	"github.com/sudhan/stockpicks/pkg/logger"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, ticker string) contracts.Fundamentals {
	f := contracts.NewFundamentals(contracts.ProvenancePrimary)
	f.Set(contracts.MetricPERatio, 20)
	f.Set(contracts.MetricEPS, 3)
	return f
}

type stubScorer struct {
	answers map[string]contracts.ScoreResult
	err     error
}

func (s *stubScorer) Score(ctx context.Context, results map[string]contracts.StockFundamentals) (map[string]contracts.ScoreResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.answers != nil {
		return s.answers, nil
	}
	scores := make(map[string]contracts.ScoreResult, len(results))
	for symbol := range results {
		scores[symbol] = contracts.ScoreResult{BuyScore: 5, Reasons: []string{"Fair value"}}
	}
	return scores, nil
}

type captureInvoker struct {
	mu       sync.Mutex
	payloads []dispatch.Payload
}

func (c *captureInvoker) Enqueue(ctx context.Context, payload dispatch.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

type stubFinalizer struct{ calls int }

func (f *stubFinalizer) Finalize(ctx context.Context) (aggregator.Summary, error) {
	f.calls++
	return aggregator.Summary{}, nil
}

type capturePlanner struct{ delay time.Duration }

func (p *capturePlanner) PlanFinalize(delay time.Duration) { p.delay = delay }

type captureSender struct {
	subject    string
	attachment []byte
}

func (s *captureSender) SendReport(ctx context.Context, subject, body string, attachment []byte) error {
	s.subject = subject
	s.attachment = attachment
	return nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		ChunkSize:           50,
		SequentialThreshold: 100,
		BatchSize:           8,
		FetchWorkers:        4,
		TopN:                25,
		StoragePrefix:       "stock-analysis/chunks",
		ChunkEstimate:       30 * time.Second,
		MaxEstimate:         10 * time.Minute,
	}
}

type fixture struct {
	orch      *Orchestrator
	invoker   *captureInvoker
	planner   *capturePlanner
	sender    *captureSender
	finalizer *stubFinalizer
	store     *storage.MemoryStore
	runs      *MemoryRunStore
}

func newFixture(cfg config.PipelineConfig, scorer Scorer) *fixture {
	log := logger.NewNop()
	f := &fixture{
		invoker:   &captureInvoker{},
		planner:   &capturePlanner{},
		sender:    &captureSender{},
		finalizer: &stubFinalizer{},
		store:     storage.NewMemoryStore(),
		runs:      NewMemoryRunStore(),
	}

	fetcher := stubFetcher{}
	f.orch = New(
		universe.NewLoader(httputil.New(log), log),
		fetcher,
		chunk.NewProcessor(fetcher, cfg.FetchWorkers, log).WithMaxDelay(0),
		scorer,
		storage.NewPublisher(f.store, cfg.StoragePrefix, log),
		f.invoker,
		f.finalizer,
		f.planner,
		f.sender,
		f.runs,
		cfg,
		log,
	)
	return f
}

func bigUniverse(n int) universe.Descriptor {
	records := make([]contracts.StockRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, contracts.NewStockRecord(fmt.Sprintf("S%03d", i), "Technology"))
	}
	return universe.Descriptor{Records: records}
}

func TestRunDistributedDispatchesChunks(t *testing.T) {
	f := newFixture(testPipelineConfig(), &stubScorer{})

	report, err := f.orch.Run(context.Background(), bigUniverse(250))
	require.NoError(t, err)

	assert.Equal(t, contracts.RunModeDistributed, report.Mode)
	assert.Equal(t, 250, report.UniverseSize)
	assert.Equal(t, 5, report.ChunksExpected)
	assert.Equal(t, 5, report.ChunksLaunched)

	require.Len(t, f.invoker.payloads, 5)
	idPattern := regexp.MustCompile(`^chunk_\d+_[0-9a-f]{8}$`)
	for i, payload := range f.invoker.payloads {
		assert.Equal(t, dispatch.OpProcessChunk, payload.Operation)
		assert.Regexp(t, idPattern, payload.ChunkID)
		assert.True(t, strings.HasPrefix(payload.ChunkID, fmt.Sprintf("chunk_%d_", i)))
		assert.Len(t, payload.Stocks, 50)
	}

	// 5 chunks at 30s each, under the 10m ceiling
	assert.Equal(t, 150*time.Second, f.planner.delay)
	assert.WithinDuration(t, time.Now().Add(150*time.Second), report.EstimatedDone, 5*time.Second)

	saved, err := f.runs.Get(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.ChunksLaunched)
}

func TestRunDistributedEstimateCeiling(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.ChunkSize = 10
	f := newFixture(cfg, &stubScorer{})

	_, err := f.orch.Run(context.Background(), bigUniverse(500))
	require.NoError(t, err)

	// 50 chunks at 30s would be 25m; capped at 10m
	assert.Equal(t, 10*time.Minute, f.planner.delay)
}

func TestRunSequentialEmailsDirectly(t *testing.T) {
	f := newFixture(testPipelineConfig(), &stubScorer{})

	report, err := f.orch.Run(context.Background(), universe.Descriptor{TestMode: true})
	require.NoError(t, err)

	assert.Equal(t, contracts.RunModeSequential, report.Mode)
	assert.Equal(t, 5, report.UniverseSize)
	assert.Equal(t, 5, report.TotalProcessed)
	assert.Equal(t, 5, report.ResultsCount)
	assert.Empty(t, f.invoker.payloads, "sequential runs never dispatch chunks")

	records, err := csv.NewReader(strings.NewReader(string(f.sender.attachment))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Symbol", "Industry", "BuyScore", "ReasonsToBuy"}, records[0])
	assert.Len(t, records, 6)
}

func TestProcessChunkPublishesRows(t *testing.T) {
	scorer := &stubScorer{answers: map[string]contracts.ScoreResult{
		"AAPL": {BuyScore: 9, Reasons: []string{"Strong EPS"}},
		// MSFT left unanswered
	}}
	f := newFixture(testPipelineConfig(), scorer)

	job := contracts.ChunkJob{
		ChunkID: "chunk_0_abcd1234",
		Stocks: []contracts.StockRecord{
			contracts.NewStockRecord("AAPL", "Technology"),
			contracts.NewStockRecord("MSFT", "Technology"),
		},
	}
	require.NoError(t, f.orch.ProcessChunk(context.Background(), job))

	payload, err := f.store.Get(context.Background(), "stock-analysis/chunks/chunk_0_abcd1234.json")
	require.NoError(t, err)

	var rows []contracts.RankedRow
	require.NoError(t, json.Unmarshal(payload, &rows))
	require.Len(t, rows, 2)

	bySymbol := make(map[string]contracts.RankedRow, len(rows))
	for _, r := range rows {
		bySymbol[r.Symbol] = r
	}
	assert.Equal(t, 9, bySymbol["AAPL"].BuyScore)
	assert.Equal(t, 0, bySymbol["MSFT"].BuyScore, "unanswered symbols get a zero score")
}

func TestProcessChunkScoringFailureStillPublishes(t *testing.T) {
	f := newFixture(testPipelineConfig(), &stubScorer{err: fmt.Errorf("oracle down")})

	job := contracts.ChunkJob{
		ChunkID: "chunk_0_ffff0000",
		Stocks:  []contracts.StockRecord{contracts.NewStockRecord("AAPL", "Technology")},
	}
	require.NoError(t, f.orch.ProcessChunk(context.Background(), job))

	payload, err := f.store.Get(context.Background(), "stock-analysis/chunks/chunk_0_ffff0000.json")
	require.NoError(t, err)

	var rows []contracts.RankedRow
	require.NoError(t, json.Unmarshal(payload, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].BuyScore)
}

func TestPartition(t *testing.T) {
	records := bigUniverse(103).Records

	chunks := partition(records, 50)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 50)
	assert.Len(t, chunks[1], 50)
	assert.Len(t, chunks[2], 3)

	// Union preserves every record exactly once, in order
	var union []contracts.StockRecord
	for _, c := range chunks {
		union = append(union, c...)
	}
	assert.Equal(t, records, union)
}

func TestHandleRoutesOperations(t *testing.T) {
	f := newFixture(testPipelineConfig(), &stubScorer{})

	err := f.orch.Handle(context.Background(), dispatch.Payload{Operation: dispatch.OpFinalizeResults})
	require.NoError(t, err)
	assert.Equal(t, 1, f.finalizer.calls)

	err = f.orch.Handle(context.Background(), dispatch.Payload{Operation: "bogus"})
	require.Error(t, err)
}
