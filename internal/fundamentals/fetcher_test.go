package fundamentals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/httputil"
	"github.com/sudhan/stockpicks/pkg/logger"
)

const quoteSummaryBody = `{
	"quoteSummary": {
		"result": [{
			"financialData": {
				"revenueGrowth": {"raw": 0.08},
				"profitMargins": {"raw": 0.25},
				"returnOnEquity": {"raw": 0.31},
				"currentRatio": {"raw": 1.4},
				"debtToEquity": {"raw": 1.2}
			},
			"defaultKeyStatistics": {
				"trailingEps": {"raw": 6.43}
			},
			"summaryDetail": {
				"trailingPE": {"raw": 28.5}
			}
		}],
		"error": null
	}
}`

func newTestFetcher(t *testing.T, primaryURL, avKey, avURL string) *Fetcher {
	t.Helper()
	log := logger.NewNop()
	httpClient := httputil.New(log)

	primary := NewPrimaryClient(httpClient, primaryURL, log)
	secondary := NewAlphaVantageClient(httpClient, avURL, avKey, log)

	f := NewFetcher(primary, sourceOrNil(secondary), 1000, log)
	f.baseDelay = 0 // no real sleeping in tests
	return f
}

// sourceOrNil avoids a typed-nil interface when the secondary is absent
func sourceOrNil(c *AlphaVantageClient) Source {
	if c == nil {
		return nil
	}
	return c
}

func TestFetchPrimarySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteSummaryBody)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL, "", "")
	fund := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, contracts.ProvenancePrimary, fund.Provenance)
	pe, ok := fund.Get(contracts.MetricPERatio)
	require.True(t, ok)
	assert.Equal(t, 28.5, pe)
	assert.True(t, fund.Eligible())
}

func TestFetchRetriesThrottlingThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, quoteSummaryBody)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL, "", "")
	fund := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, contracts.ProvenancePrimary, fund.Provenance)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchFallsBackToSecondary(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer primary.Close()

	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Symbol":"AAPL","EPS":"6.43","PERatio":"28.5","ProfitMargin":"0.25"}`)
	}))
	defer secondary.Close()

	f := newTestFetcher(t, primary.URL, "demo-key", secondary.URL)
	fund := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, contracts.ProvenanceSecondary, fund.Provenance)
	pe, _ := fund.Get(contracts.MetricPERatio)
	assert.Equal(t, 28.5, pe)
}

func TestFetchFallsBackToSyntheticWithoutCredential(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer primary.Close()

	f := newTestFetcher(t, primary.URL, "", "")
	fund := f.Fetch(context.Background(), "ZZZZ")

	assert.Equal(t, contracts.ProvenanceSynthetic, fund.Provenance)
	assert.True(t, fund.Eligible(), "synthetic data must pass the P/E gate")
}

func TestSecondaryRejectsInsufficientData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Symbol":"AAPL","EPS":"6.43"}`)
	}))
	defer server.Close()

	log := logger.NewNop()
	client := NewAlphaVantageClient(httputil.New(log), server.URL, "demo-key", log)

	_, err := client.Fetch(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestSecondaryNoteMeansThrottled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	}))
	defer server.Close()

	log := logger.NewNop()
	client := NewAlphaVantageClient(httputil.New(log), server.URL, "demo-key", log)

	_, err := client.Fetch(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestSyntheticIsDeterministic(t *testing.T) {
	a := Synthetic("XYZ")
	b := Synthetic("XYZ")

	for _, name := range contracts.MetricNames {
		av, aok := a.Get(name)
		bv, bok := b.Get(name)
		assert.Equal(t, aok, bok, name)
		assert.Equal(t, av, bv, name)
	}
}

func TestSyntheticKnownTickerUsesProfile(t *testing.T) {
	fund := Synthetic("TSLA")
	pe, _ := fund.Get(contracts.MetricPERatio)
	assert.Equal(t, 67.3, pe)

	growth, _ := fund.Get(contracts.MetricRevenueGrowth)
	assert.Equal(t, 0.25, growth)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errorClass
	}{
		{"throttled sentinel", ErrThrottled, classThrottled},
		{"rate limit text", errors.New("429 rate limit exceeded"), classThrottled},
		{"timeout text", errors.New("dial tcp: i/o timeout"), classTransient},
		{"connection text", errors.New("connection refused"), classTransient},
		{"deadline", context.DeadlineExceeded, classTransient},
		{"other", errors.New("no such symbol"), classOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
