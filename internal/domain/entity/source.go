package entity

import (
	"strings"
	"time"
)

// Source types supported by the crawler.
const (
	SourceTypeRSS      = "rss"
	SourceTypeHomepage = "homepage"
)

// Source is a registered crawl target: an RSS feed or a homepage to be
// scraped for article links.
type Source struct {
	ID            int64
	URL           string
	Name          string
	Type          string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastCrawledAt *time.Time
}

// NewSource constructs a source pending insertion.
func NewSource(url, name, typ string) (*Source, error) {
	s := &Source{
		URL:    url,
		Name:   name,
		Type:   typ,
		Active: true,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the invariants a source must satisfy.
func (s *Source) Validate() error {
	if strings.TrimSpace(s.URL) == "" {
		return NewValidationError("url", "must not be empty")
	}
	if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
		return NewValidationError("url", "must be an http(s) URL")
	}
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if s.Type != SourceTypeRSS && s.Type != SourceTypeHomepage {
		return NewValidationError("type", "must be rss or homepage")
	}
	return nil
}
