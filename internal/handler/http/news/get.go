package news

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cgast/embird/internal/handler/http/respond"
	"github.com/cgast/embird/internal/repository"
)

// GetHandler answers GET /api/news/{id}.
type GetHandler struct{ Svc Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid article id"))
		return
	}

	item, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("article not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(item))
}
