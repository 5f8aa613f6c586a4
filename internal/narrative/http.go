package narrative

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// HTTPSummarizer posts the report to an external text generation
// service and returns its summary.
type HTTPSummarizer struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPConfig holds HTTP summarizer configuration.
type HTTPConfig struct {
	URL     string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewHTTPSummarizer creates an HTTP summarizer.
func NewHTTPSummarizer(cfg *HTTPConfig) (*HTTPSummarizer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSummarizer{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Summarize posts the report and reads back the generated summary.
func (s *HTTPSummarizer) Summarize(ctx context.Context, report Report) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarizer returned %d: %s", resp.StatusCode, string(body))
	}

	var out summaryResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		return "", fmt.Errorf("decode summary: %w", err)
	}

	if out.Summary == "" {
		return "", fmt.Errorf("summarizer returned empty summary")
	}

	s.logger.Debug("summary-generated", zap.String("ticker", report.Ticker))

	return out.Summary, nil
}
