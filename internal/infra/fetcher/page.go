// Package fetcher retrieves remote resources for the crawler: RSS feeds
// and HTML pages. All outbound requests share one HTTP client, carry the
// configured User-Agent, and go through a circuit breaker.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cgast/embird/internal/resilience/circuitbreaker"
	"github.com/cgast/embird/internal/resilience/retry"
)

// maxBodyBytes caps how much of a response body is read. News pages and
// feeds beyond this are cut off rather than ballooning memory.
const maxBodyBytes = 10 << 20

// PageFetcher downloads HTML pages.
type PageFetcher struct {
	client    *http.Client
	userAgent string
	breaker   *circuitbreaker.CircuitBreaker
}

// NewPageFetcher creates a page fetcher with the given timeout and
// User-Agent.
func NewPageFetcher(timeout time.Duration, userAgent string) *PageFetcher {
	return &PageFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		breaker:   circuitbreaker.New(circuitbreaker.PageFetchConfig()),
	}
}

// Fetch downloads the page at url and returns its body. Non-2xx
// responses are returned as retry.HTTPError so the retry layer can
// classify them.
func (f *PageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.WithBackoff(ctx, retry.PageFetchConfig(), func() error {
		result, err := f.breaker.Execute(func() (interface{}, error) {
			return f.fetch(ctx, url)
		})
		if err != nil {
			return err
		}
		body = result.([]byte)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

func (f *PageFetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
