package brain

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	maxContentChars = 10000
	maxFetchBytes   = 2 << 20 // pages past 2MB are never product reviews

	fetcherUserAgent = "GlowfeedDiscovery/1.0 (+https://glowfeed.app; product research)"
)

// Fetcher does a best-effort full-page fetch. Any failure whatsoever degrades
// to the search-result snippet, so the pipeline never stalls on one source.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch returns readable page text capped at 10k chars, or snippet on failure.
func (f *Fetcher) Fetch(ctx context.Context, pageURL, snippet string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return snippet
	}
	req.Header.Set("User-Agent", fetcherUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "page fetch failed, using snippet",
			"url", pageURL, "error", err)
		return snippet
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.DebugContext(ctx, "page fetch non-2xx, using snippet",
			"url", pageURL, "status", resp.StatusCode)
		return snippet
	}

	text := extractText(io.LimitReader(resp.Body, maxFetchBytes))
	if text == "" {
		return snippet
	}
	if len(text) > maxContentChars {
		text = text[:maxContentChars]
	}
	return text
}

// extractText tokenizes HTML, skipping script/style subtrees, and collapses
// all whitespace runs to single spaces.
func extractText(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)

	var sb strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "iframe", "svg":
		return true
	}
	return false
}
