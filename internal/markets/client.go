package markets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// Client fetches market metadata from the exchange REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig holds REST client configuration.
type ClientConfig struct {
	BaseURL string
	APIKey  string // optional, public market endpoints work without it
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a metadata client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// marketResponse mirrors the exchange's GET /markets/{ticker} payload,
// trimmed to the fields we read.
type marketResponse struct {
	Market struct {
		Ticker       string `json:"ticker"`
		Title        string `json:"title"`
		Category     string `json:"category"`
		RulesPrimary string `json:"rules_primary"`
		OpenInterest int    `json:"open_interest"`
		Volume24h    int    `json:"volume_24h"`
	} `json:"market"`
}

// Lookup fetches metadata for one ticker.
func (c *Client) Lookup(ctx context.Context, ticker string) (types.MarketMetadata, error) {
	start := time.Now()
	defer func() {
		LookupDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/markets/%s", c.baseURL, ticker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.MarketMetadata{}, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		LookupErrorsTotal.Inc()
		return types.MarketMetadata{}, fmt.Errorf("fetch market %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		LookupErrorsTotal.Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.MarketMetadata{}, fmt.Errorf("market api returned %d for %s: %s",
			resp.StatusCode, ticker, string(body))
	}

	var out marketResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		LookupErrorsTotal.Inc()
		return types.MarketMetadata{}, fmt.Errorf("decode market %s: %w", ticker, err)
	}

	meta := types.MarketMetadata{
		Ticker:       out.Market.Ticker,
		Title:        out.Market.Title,
		Category:     out.Market.Category,
		Rules:        out.Market.RulesPrimary,
		OpenInterest: out.Market.OpenInterest,
		Volume24h:    out.Market.Volume24h,
		Available:    true,
	}

	c.logger.Debug("market-metadata-fetched",
		zap.String("ticker", ticker),
		zap.Int("open_interest", meta.OpenInterest))

	return meta, nil
}
