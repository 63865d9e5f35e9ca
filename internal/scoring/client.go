package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/config"
	"github.com/sudhan/stockpicks/pkg/httputil"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Client scores a batch of stocks through a chat-completion oracle
// ⭐ SSOT: 스코어링 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.ScoringConfig
}

// NewClient creates a scoring client
func NewClient(httpClient *httputil.Client, cfg config.ScoringConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "scoring"),
		cfg:        cfg,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Score sends one batch of fundamentals to the oracle and returns the
// per-symbol scores. Symbols the oracle did not answer for are absent
// from the result; the caller fills them with a zero score.
func (c *Client) Score(ctx context.Context, results map[string]contracts.StockFundamentals) (map[string]contracts.ScoreResult, error) {
	if len(results) == 0 {
		return map[string]contracts.ScoreResult{}, nil
	}

	prompt := buildPrompt(FormatFundamentals(results))

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal scoring request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.cfg.BaseURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scoring API status %d: %s", resp.StatusCode, string(body))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode scoring response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("scoring API error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("scoring response has no choices")
	}

	scores := ExtractScores(chat.Choices[0].Message.Content)
	c.logger.WithFields(map[string]interface{}{
		"stocks": len(results),
		"scored": len(scores),
	}).Info("Batch scored")

	return scores, nil
}
