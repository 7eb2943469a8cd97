package postgres

import (
	"fmt"
	"strconv"
	"strings"
)

// parseVector decodes the pgvector text form "[0.1,0.2,...]" produced by
// embedding::text. Reads go through text so NULL embeddings scan cleanly
// as an empty sql.NullString.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("parseVector: malformed vector %q", truncateForError(s))
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parseVector: %w", err)
		}
		out = append(out, float32(f))
	}
	return out, nil
}

func truncateForError(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
