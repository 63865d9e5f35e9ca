package fundamentals

import (
	"hash/fnv"
	"math/rand"

	"github.com/sudhan/stockpicks/internal/contracts"
)

// baseProfile seeds synthetic data for well-known tickers
type baseProfile struct {
	pe     float64
	growth float64
	eps    float64
}

var majorStocks = map[string]baseProfile{
	"AAPL":  {pe: 28.5, growth: 0.08, eps: 6.43},
	"MSFT":  {pe: 32.1, growth: 0.12, eps: 9.27},
	"GOOGL": {pe: 24.8, growth: 0.15, eps: 5.61},
	"AMZN":  {pe: 45.2, growth: 0.09, eps: 3.31},
	"TSLA":  {pe: 67.3, growth: 0.25, eps: 4.93},
}

// Synthetic generates plausible placeholder fundamentals for a ticker.
// The ticker seeds the generator, so repeated calls for the same symbol
// return the same record. P/E is always positive: synthetic records never
// get dropped by the eligibility filter.
func Synthetic(ticker string) contracts.Fundamentals {
	rng := rand.New(rand.NewSource(int64(tickerSeed(ticker))))

	base, known := majorStocks[ticker]
	if !known {
		base = baseProfile{
			pe:     round1(15 + rng.Float64()*35),       // 15-50
			growth: round3(0.02 + rng.Float64()*0.18),   // 2-20%
			eps:    round2(1 + rng.Float64()*9),         // 1-10
		}
	}

	fund := contracts.NewFundamentals(contracts.ProvenanceSynthetic)
	fund.Set(contracts.MetricRevenueGrowth, base.growth)
	fund.Set(contracts.MetricEPS, base.eps)
	fund.Set(contracts.MetricProfitMargin, round3(0.05+rng.Float64()*0.20))  // 5-25%
	fund.Set(contracts.MetricROE, round3(0.10+rng.Float64()*0.25))          // 10-35%
	fund.Set(contracts.MetricPERatio, base.pe)
	fund.Set(contracts.MetricCurrentRatio, round2(1.0+rng.Float64()*2.0))   // 1.0-3.0
	fund.Set(contracts.MetricDebtToEquity, round2(0.1+rng.Float64()*1.9))   // 0.1-2.0

	return fund
}

func tickerSeed(ticker string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(ticker))
	return h.Sum32()
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
func round3(v float64) float64 { return float64(int(v*1000+0.5)) / 1000 }
