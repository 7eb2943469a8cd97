package entity

import (
	"strings"
	"time"
)

// PreferenceVector is a user-defined text whose embedding is plotted
// alongside news items in the projection view.
type PreferenceVector struct {
	ID          int64
	Title       string
	Description string
	Embedding   []float32
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPreferenceVector constructs a preference vector pending insertion.
func NewPreferenceVector(title, description, color string, embedding []float32) (*PreferenceVector, error) {
	p := &PreferenceVector{
		Title:       title,
		Description: description,
		Color:       color,
		Embedding:   embedding,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the invariants a preference vector must satisfy.
func (p *PreferenceVector) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(p.Description) == "" {
		return NewValidationError("description", "must not be empty")
	}
	if p.Embedding != nil && len(p.Embedding) != EmbeddingDimensions {
		return NewValidationError("embedding", "wrong dimensionality")
	}
	return nil
}

// EmbeddingText is the text sent to the embedding provider for this
// preference: the description when present, otherwise the title.
func (p *PreferenceVector) EmbeddingText() string {
	if strings.TrimSpace(p.Description) != "" {
		return p.Description
	}
	return p.Title
}
