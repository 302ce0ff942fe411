// Package semantic is the HTTP client for the external vector-search
// service. The engine treats that service as a second, independently scored
// relevance channel with the same result shape as the keyword channel.
// Retry and circuit breaking live here, at the boundary, as explicit
// wrappers; the orchestrator itself never retries.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/pkg/resilience"
)

// Client implements corpus.SemanticSearcher against a remote HTTP service
// exposing GET /search?q=<query>&k=<topK>.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// New creates a Client. The timeout bounds each individual HTTP call; the
// engine core applies no timeout of its own to channel calls.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: resilience.NewCircuitBreaker("semantic-search", resilience.CircuitBreakerConfig{}),
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
		},
		logger: slog.Default().With("component", "semantic-client"),
	}
}

type searchResponse struct {
	Results []corpus.RankedDocument `json:"results"`
}

// Search queries the vector channel for the top-K semantically closest
// documents.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]corpus.RankedDocument, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&k=%s",
		c.baseURL, url.QueryEscape(query), strconv.Itoa(topK))

	var results []corpus.RankedDocument
	err := c.breaker.Execute(func() error {
		return resilience.Retry(ctx, "semantic-search", c.retry, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return err
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("semantic service returned %d", resp.StatusCode)
			}
			var body searchResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decoding semantic response: %w", err)
			}
			results = body.Results
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("semantic channel answered", "query", query, "hits", len(results))
	return results, nil
}
