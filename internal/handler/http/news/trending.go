package news

import (
	"errors"
	"net/http"

	"github.com/cgast/embird/internal/handler/http/respond"
)

// TrendingHandler answers GET /api/news/trending.
type TrendingHandler struct{ Svc Service }

func (h TrendingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hours, ok := queryInt(r, "hours", 24, 1, 168)
	if !ok {
		respond.Error(w, http.StatusBadRequest, errors.New("hours must be between 1 and 168"))
		return
	}
	limit, ok := queryInt(r, "limit", 10, 1, 100)
	if !ok {
		respond.Error(w, http.StatusBadRequest, errors.New("limit must be between 1 and 100"))
		return
	}

	items, err := h.Svc.Trending(r.Context(), hours, limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTOs(items))
}
