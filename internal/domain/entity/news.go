// Package entity defines the core domain objects: news items, crawl
// sources, preference vectors, and cluster/projection snapshots.
package entity

import (
	"strings"
	"time"
)

// EmbeddingDimensions is the required length of every stored embedding.
const EmbeddingDimensions = 1024

// NewsItem is a crawled news article with its embedding.
type NewsItem struct {
	ID         int64
	Title      string
	Summary    string
	URL        string
	SourceURL  string
	SourceName string
	Embedding  []float32
	HitCount   int
	FirstSeen  time.Time
	LastSeen   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewNewsItem constructs a news item for first insertion. HitCount starts
// at 1 and both sighting timestamps are set to now.
func NewNewsItem(title, summary, url, sourceURL, sourceName string, embedding []float32, now time.Time) (*NewsItem, error) {
	item := &NewsItem{
		Title:      title,
		Summary:    summary,
		URL:        url,
		SourceURL:  sourceURL,
		SourceName: sourceName,
		Embedding:  embedding,
		HitCount:   1,
		FirstSeen:  now,
		LastSeen:   now,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks the invariants every news item must satisfy before it
// is persisted.
func (n *NewsItem) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(n.URL) == "" {
		return NewValidationError("url", "must not be empty")
	}
	if n.Embedding != nil && len(n.Embedding) != EmbeddingDimensions {
		return NewValidationError("embedding", "wrong dimensionality")
	}
	if n.HitCount < 1 {
		return NewValidationError("hit_count", "must be at least 1")
	}
	if !n.LastSeen.IsZero() && !n.FirstSeen.IsZero() && n.LastSeen.Before(n.FirstSeen) {
		return NewValidationError("last_seen_at", "must not precede first_seen_at")
	}
	return nil
}

// AgeHours returns how many hours have passed since the item was first
// seen, measured against now.
func (n *NewsItem) AgeHours(now time.Time) float64 {
	return now.Sub(n.FirstSeen).Hours()
}
