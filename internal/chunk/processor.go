package chunk

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// FundamentalsFetcher resolves fundamentals for one ticker
type FundamentalsFetcher interface {
	Fetch(ctx context.Context, ticker string) contracts.Fundamentals
}

// Processor fetches fundamentals for a bounded chunk of stocks with a
// worker pool and filters out records that fail the P/E eligibility gate
// ⭐ SSOT: 청크 단위 병렬 수집은 여기서만
type Processor struct {
	fetcher FundamentalsFetcher
	logger  *logger.Logger

	workers  int
	maxDelay time.Duration // upper bound of the pre-fetch jitter
}

// NewProcessor creates a chunk processor
func NewProcessor(fetcher FundamentalsFetcher, workers int, log *logger.Logger) *Processor {
	if workers <= 0 {
		workers = 10
	}
	return &Processor{
		fetcher:  fetcher,
		logger:   log.WithField("module", "chunk"),
		workers:  workers,
		maxDelay: 300 * time.Millisecond,
	}
}

// WithMaxDelay overrides the jitter upper bound. For tests.
func (p *Processor) WithMaxDelay(d time.Duration) *Processor {
	p.maxDelay = d
	return p
}

type fetchResult struct {
	symbol string
	sector string
	data   contracts.Fundamentals
	ok     bool
}

// Process fetches every stock in the chunk concurrently and returns the
// eligible results keyed by symbol. It does not return until every
// dispatched fetch has completed: nothing leaks past the chunk boundary.
func (p *Processor) Process(ctx context.Context, stocks []contracts.StockRecord) map[string]contracts.StockFundamentals {
	if len(stocks) == 0 {
		return map[string]contracts.StockFundamentals{}
	}

	stockCh := make(chan contracts.StockRecord, len(stocks))
	resultCh := make(chan fetchResult, len(stocks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, stockCh, resultCh)
		}()
	}

	for _, stock := range stocks {
		stockCh <- stock
	}
	close(stockCh)

	// Join barrier: close the result channel once every worker is done
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]contracts.StockFundamentals, len(stocks))
	dropped := 0
	for res := range resultCh {
		if !res.ok {
			dropped++
			continue
		}
		results[res.symbol] = contracts.StockFundamentals{
			Sector: res.sector,
			Data:   res.data,
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"stocks":  len(stocks),
		"valid":   len(results),
		"dropped": dropped,
	}).Info("Chunk processed")

	return results
}

// worker fetches stocks from the channel until it is drained
func (p *Processor) worker(ctx context.Context, stockCh <-chan contracts.StockRecord, resultCh chan<- fetchResult) {
	for stock := range stockCh {
		// Small randomized delay to smooth the outbound request rate
		if p.maxDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(rand.Int63n(int64(p.maxDelay)))):
			}
		}

		data := p.fetcher.Fetch(ctx, stock.Symbol)
		resultCh <- fetchResult{
			symbol: stock.Symbol,
			sector: stock.Sector,
			data:   data,
			ok:     data.Eligible(),
		}
	}
}
