package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/cgast/embird/internal/resilience/circuitbreaker"
	"github.com/cgast/embird/internal/resilience/retry"
)

// FeedItem is one entry of a parsed feed, reduced to the fields the
// crawler consumes.
type FeedItem struct {
	Title     string
	Link      string
	Summary   string
	Published *time.Time
}

// FeedFetcher downloads and parses RSS/Atom feeds with gofeed.
type FeedFetcher struct {
	parser  *gofeed.Parser
	breaker *circuitbreaker.CircuitBreaker
}

// NewFeedFetcher creates a feed fetcher with the given timeout and
// User-Agent.
func NewFeedFetcher(timeout time.Duration, userAgent string) *FeedFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = userAgent

	return &FeedFetcher{
		parser:  parser,
		breaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
	}
}

// Fetch downloads the feed at url and returns its items. Entries without
// a link are dropped.
func (f *FeedFetcher) Fetch(ctx context.Context, url string) ([]FeedItem, error) {
	var feed *gofeed.Feed
	err := retry.WithBackoff(ctx, retry.FeedFetchConfig(), func() error {
		result, err := f.breaker.Execute(func() (interface{}, error) {
			return f.parser.ParseURLWithContext(url, ctx)
		})
		if err != nil {
			return translateGofeedError(err)
		}
		feed = result.(*gofeed.Feed)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil || it.Link == "" {
			continue
		}
		summary := it.Description
		if summary == "" {
			summary = it.Content
		}
		items = append(items, FeedItem{
			Title:     it.Title,
			Link:      it.Link,
			Summary:   summary,
			Published: it.PublishedParsed,
		})
	}
	return items, nil
}

// translateGofeedError maps gofeed's HTTP error to retry.HTTPError so
// status-based retry classification keeps working.
func translateGofeedError(err error) error {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
	}
	return err
}
