package news

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cgast/embird/internal/handler/http/respond"
)

// SearchHandler answers GET /api/news/search.
type SearchHandler struct{ Svc Service }

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respond.Error(w, http.StatusUnprocessableEntity, errors.New("query is required"))
		return
	}
	limit, ok := queryInt(r, "limit", 10, 1, 100)
	if !ok {
		respond.Error(w, http.StatusBadRequest, errors.New("limit must be between 1 and 100"))
		return
	}

	results, err := h.Svc.Search(r.Context(), query, r.URL.Query().Get("source_url"), limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toScoredDTOs(results))
}
