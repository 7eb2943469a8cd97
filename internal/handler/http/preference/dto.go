// Package preference provides the HTTP handlers for the
// /api/preference-vectors endpoints.
package preference

import (
	"time"

	"github.com/cgast/embird/internal/domain/entity"
)

// DTO is the JSON shape of one preference vector. The embedding itself
// is never served.
type DTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	HasVector   bool      `json:"has_vector"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpsertRequest is the POST and PUT body.
type UpsertRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func toDTO(p *entity.PreferenceVector) DTO {
	return DTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
		HasVector:   p.Embedding != nil,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toDTOs(prefs []*entity.PreferenceVector) []DTO {
	out := make([]DTO, 0, len(prefs))
	for _, p := range prefs {
		out = append(out, toDTO(p))
	}
	return out
}
