// Package source provides the HTTP handlers for the /api/urls endpoints
// that manage the crawl source registry.
package source

import (
	"time"

	"github.com/cgast/embird/internal/domain/entity"
)

// DTO is the JSON shape of one crawl source.
type DTO struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Active        bool       `json:"active"`
	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateRequest is the POST /api/urls body.
type CreateRequest struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active *bool  `json:"active,omitempty"`
}

func toDTO(src *entity.Source) DTO {
	return DTO{
		ID:            src.ID,
		URL:           src.URL,
		Name:          src.Name,
		Type:          src.Type,
		Active:        src.Active,
		LastCrawledAt: src.LastCrawledAt,
		CreatedAt:     src.CreatedAt,
		UpdatedAt:     src.UpdatedAt,
	}
}

func toDTOs(sources []*entity.Source) []DTO {
	out := make([]DTO, 0, len(sources))
	for _, s := range sources {
		out = append(out, toDTO(s))
	}
	return out
}
