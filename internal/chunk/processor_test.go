package chunk

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// fakeFetcher returns canned fundamentals per symbol
type fakeFetcher struct {
	mu        sync.Mutex
	bys       map[string]contracts.Fundamentals
	inFlight  int32
	maxSeen   int32
	callCount int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, ticker string) contracts.Fundamentals {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	atomic.AddInt32(&f.callCount, 1)

	for {
		prev := atomic.LoadInt32(&f.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxSeen, prev, cur) {
			break
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if fund, ok := f.bys[ticker]; ok {
		return fund
	}
	return contracts.NewFundamentals(contracts.ProvenanceSynthetic) // no P/E, ineligible
}

func withPE(pe float64) contracts.Fundamentals {
	f := contracts.NewFundamentals(contracts.ProvenancePrimary)
	f.Set(contracts.MetricPERatio, pe)
	f.Set(contracts.MetricEPS, 2.0)
	return f
}

func records(symbols ...string) []contracts.StockRecord {
	out := make([]contracts.StockRecord, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, contracts.NewStockRecord(s, "Technology"))
	}
	return out
}

func TestProcessFiltersIneligible(t *testing.T) {
	fetcher := &fakeFetcher{bys: map[string]contracts.Fundamentals{
		"AAPL": withPE(28.5),
		"MSFT": withPE(32.1),
		"NEG":  withPE(-3.0),
		"ZERO": withPE(0),
		// "MISS" has no entry: fundamentals without P/E
	}}

	p := NewProcessor(fetcher, 4, logger.NewNop()).WithMaxDelay(0)
	results := p.Process(context.Background(), records("AAPL", "MSFT", "NEG", "ZERO", "MISS"))

	assert.Len(t, results, 2)
	assert.Contains(t, results, "AAPL")
	assert.Contains(t, results, "MSFT")
	assert.Equal(t, "Technology", results["AAPL"].Sector)
}

func TestProcessJoinsAllFetches(t *testing.T) {
	bys := make(map[string]contracts.Fundamentals)
	symbols := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		s := string(rune('A'+i%26)) + string(rune('A'+i/26))
		symbols = append(symbols, s)
		bys[s] = withPE(20)
	}

	fetcher := &fakeFetcher{bys: bys}
	p := NewProcessor(fetcher, 10, logger.NewNop()).WithMaxDelay(0)

	results := p.Process(context.Background(), records(symbols...))

	assert.Equal(t, int32(40), atomic.LoadInt32(&fetcher.callCount), "every stock fetched exactly once")
	assert.Len(t, results, 40)
	assert.LessOrEqual(t, fetcher.maxSeen, int32(10), "worker pool bound respected")
}

func TestProcessEmptyChunk(t *testing.T) {
	p := NewProcessor(&fakeFetcher{}, 4, logger.NewNop()).WithMaxDelay(0)
	results := p.Process(context.Background(), nil)
	assert.Empty(t, results)
}
