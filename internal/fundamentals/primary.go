package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/httputil"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// PrimaryClient fetches fundamentals from the quote-summary endpoint of
// the primary market data source
// ⭐ SSOT: 기본 시세 API 호출은 이 클라이언트에서만
type PrimaryClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewPrimaryClient creates a new primary source client. Retry policy is
// owned by the Fetcher, so the HTTP client's own retry is disabled.
func NewPrimaryClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *PrimaryClient {
	return &PrimaryClient{
		httpClient: httpClient.DisableRetry(),
		logger:     log,
		baseURL:    baseURL,
	}
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	FinancialData struct {
		RevenueGrowth  rawValue `json:"revenueGrowth"`
		EarningsGrowth rawValue `json:"earningsGrowth"`
		ProfitMargins  rawValue `json:"profitMargins"`
		ReturnOnEquity rawValue `json:"returnOnEquity"`
		CurrentRatio   rawValue `json:"currentRatio"`
		DebtToEquity   rawValue `json:"debtToEquity"`
	} `json:"financialData"`
	DefaultKeyStatistics struct {
		TrailingEps rawValue `json:"trailingEps"`
		ForwardEps  rawValue `json:"forwardEps"`
	} `json:"defaultKeyStatistics"`
	SummaryDetail struct {
		TrailingPE rawValue `json:"trailingPE"`
		ForwardPE  rawValue `json:"forwardPE"`
	} `json:"summaryDetail"`
}

// Fetch requests fundamentals for one ticker
func (c *PrimaryClient) Fetch(ctx context.Context, ticker string) (contracts.Fundamentals, error) {
	url := fmt.Sprintf(
		"%s/v11/finance/quoteSummary/%s?modules=financialData,defaultKeyStatistics,summaryDetail",
		c.baseURL, ticker,
	)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("quote summary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return contracts.Fundamentals{}, ErrThrottled
	}
	if resp.StatusCode != http.StatusOK {
		return contracts.Fundamentals{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("decode quote summary: %w", err)
	}

	if payload.QuoteSummary.Error != nil {
		return contracts.Fundamentals{}, fmt.Errorf("quote summary error: %s", payload.QuoteSummary.Error.Description)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return contracts.Fundamentals{}, fmt.Errorf("no quote summary result for %s", ticker)
	}

	return mapQuoteSummary(payload.QuoteSummary.Result[0]), nil
}

// mapQuoteSummary converts the API payload into a fundamentals record,
// preferring trailing values and falling back to forward ones
func mapQuoteSummary(r quoteSummaryResult) contracts.Fundamentals {
	fund := contracts.NewFundamentals(contracts.ProvenancePrimary)

	setFirst(fund, contracts.MetricRevenueGrowth, r.FinancialData.RevenueGrowth, r.FinancialData.EarningsGrowth)
	setFirst(fund, contracts.MetricEPS, r.DefaultKeyStatistics.TrailingEps, r.DefaultKeyStatistics.ForwardEps)
	setFirst(fund, contracts.MetricProfitMargin, r.FinancialData.ProfitMargins)
	setFirst(fund, contracts.MetricROE, r.FinancialData.ReturnOnEquity)
	setFirst(fund, contracts.MetricPERatio, r.SummaryDetail.TrailingPE, r.SummaryDetail.ForwardPE)
	setFirst(fund, contracts.MetricCurrentRatio, r.FinancialData.CurrentRatio)
	setFirst(fund, contracts.MetricDebtToEquity, r.FinancialData.DebtToEquity)

	return fund
}

// setFirst stores the first known value among the candidates
func setFirst(f contracts.Fundamentals, name string, candidates ...rawValue) {
	for _, c := range candidates {
		if c.Raw != nil {
			f.Set(name, *c.Raw)
			return
		}
	}
}
