package news

import (
	"errors"
	"net/http"

	"github.com/cgast/embird/internal/handler/http/respond"
)

// ListHandler answers GET /api/news.
type ListHandler struct{ Svc Service }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 100, 1, 1000)
	if !ok {
		respond.Error(w, http.StatusBadRequest, errors.New("limit must be between 1 and 1000"))
		return
	}
	offset, ok := queryInt(r, "offset", 0, 0, 1<<30)
	if !ok {
		respond.Error(w, http.StatusBadRequest, errors.New("offset must not be negative"))
		return
	}

	items, err := h.Svc.List(r.Context(), r.URL.Query().Get("source_url"), limit, offset)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTOs(items))
}
