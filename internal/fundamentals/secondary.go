package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/httputil"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// AlphaVantageClient is the secondary fundamentals source. It is only
// constructed when an API key is configured.
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type AlphaVantageClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewAlphaVantageClient creates the secondary source client, or nil when
// no API key is available
func NewAlphaVantageClient(httpClient *httputil.Client, baseURL, apiKey string, log *logger.Logger) *AlphaVantageClient {
	if apiKey == "" {
		return nil
	}
	return &AlphaVantageClient{
		httpClient: httpClient,
		logger:     log,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// overviewResponse mirrors the OVERVIEW endpoint. All numeric fields come
// back as strings; "None" and "-" mean unknown.
type overviewResponse struct {
	Symbol                    string `json:"Symbol"`
	ErrorMessage              string `json:"Error Message"`
	Note                      string `json:"Note"`
	QuarterlyRevenueGrowthYOY string `json:"QuarterlyRevenueGrowthYOY"`
	EPS                       string `json:"EPS"`
	ProfitMargin              string `json:"ProfitMargin"`
	ReturnOnEquityTTM         string `json:"ReturnOnEquityTTM"`
	PERatio                   string `json:"PERatio"`
	CurrentRatio              string `json:"CurrentRatio"`
	DebtToEquityRatio         string `json:"DebtToEquityRatio"`
}

// Fetch requests the company overview for one ticker. A payload with
// fewer than two known metrics is rejected.
func (c *AlphaVantageClient) Fetch(ctx context.Context, ticker string) (contracts.Fundamentals, error) {
	url := fmt.Sprintf("%s/query?function=OVERVIEW&symbol=%s&apikey=%s", c.baseURL, ticker, c.apiKey)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("overview request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.Fundamentals{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload overviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("decode overview: %w", err)
	}

	// A "Note" field is how the API signals throttling
	if payload.Note != "" {
		return contracts.Fundamentals{}, ErrThrottled
	}
	if payload.ErrorMessage != "" {
		return contracts.Fundamentals{}, fmt.Errorf("overview error: %s", payload.ErrorMessage)
	}
	if payload.Symbol == "" {
		return contracts.Fundamentals{}, fmt.Errorf("no overview data for %s", ticker)
	}

	fund := contracts.NewFundamentals(contracts.ProvenanceSecondary)
	setIfKnown(fund, contracts.MetricRevenueGrowth, safePercent(payload.QuarterlyRevenueGrowthYOY))
	setIfKnown(fund, contracts.MetricEPS, safeFloat(payload.EPS))
	setIfKnown(fund, contracts.MetricProfitMargin, safePercent(payload.ProfitMargin))
	setIfKnown(fund, contracts.MetricROE, safePercent(payload.ReturnOnEquityTTM))
	setIfKnown(fund, contracts.MetricPERatio, safeFloat(payload.PERatio))
	setIfKnown(fund, contracts.MetricCurrentRatio, safeFloat(payload.CurrentRatio))
	setIfKnown(fund, contracts.MetricDebtToEquity, safeFloat(payload.DebtToEquityRatio))

	if fund.ValidCount() < 2 {
		return contracts.Fundamentals{}, fmt.Errorf("overview data insufficient for %s", ticker)
	}

	return fund, nil
}

func setIfKnown(f contracts.Fundamentals, name string, v *float64) {
	if v != nil {
		f.Set(name, *v)
	}
}

// safeFloat parses an optional numeric string; nil means unknown
func safeFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// safePercent parses an optional percentage string into a decimal ratio
func safePercent(s string) *float64 {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		v := safeFloat(strings.TrimSuffix(s, "%"))
		if v == nil {
			return nil
		}
		ratio := *v / 100
		return &ratio
	}
	return safeFloat(s)
}
