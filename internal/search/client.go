package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"glowfeed.app/discovery/core/config"
	"glowfeed.app/discovery/internal/domain"
)

// Provider is the web-search collaborator consumed by the Executor.
type Provider interface {
	Search(ctx context.Context, query string, lang domain.Language) ([]domain.RawHit, error)
}

// Client talks to a Serper-style JSON search API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
}

func NewClient(cfg config.SearchConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 1.0
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 5),
	}
}

type searchRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
	Num int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search issues one blocking search call. Locale parameters derive from the
// detected query language.
func (c *Client) Search(ctx context.Context, query string, lang domain.Language) ([]domain.RawHit, error) {
	body := searchRequest{Q: query, GL: "us", HL: "en", Num: 20}
	if lang == domain.LanguageHindi {
		body.GL = "in"
		body.HL = "hi"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	// Two retries on transient failures, matching the provider's guidance.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		hits, retryable, err := c.doSearch(ctx, payload)
		if err == nil {
			return hits, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		slog.WarnContext(ctx, "search request failed, retrying",
			"attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt*500) * time.Millisecond):
		}
	}

	return nil, lastErr
}

func (c *Client) doSearch(ctx context.Context, payload []byte) ([]domain.RawHit, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("reading search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("search provider returned %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false, fmt.Errorf("decoding search response: %w", err)
	}

	hits := make([]domain.RawHit, 0, len(parsed.Organic))
	for _, o := range parsed.Organic {
		hits = append(hits, domain.RawHit{Title: o.Title, URL: o.Link, Snippet: o.Snippet})
	}
	return hits, false, nil
}
