package news

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cgast/embird/internal/handler/http/respond"
	"github.com/cgast/embird/internal/repository"
	newsUC "github.com/cgast/embird/internal/usecase/news"
)

// SimilarHandler answers GET /api/news/{id}/similar.
type SimilarHandler struct{ Svc Service }

func (h SimilarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid article id"))
		return
	}
	limit, ok := queryInt(r, "limit", 5, 1, 20)
	if !ok {
		respond.Error(w, http.StatusBadRequest, errors.New("limit must be between 1 and 20"))
		return
	}

	results, err := h.Svc.Similar(r.Context(), id, limit)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			respond.Error(w, http.StatusNotFound, errors.New("article not found"))
		case errors.Is(err, newsUC.ErrNoEmbedding):
			respond.Error(w, http.StatusUnprocessableEntity, errors.New("article has no embedding"))
		default:
			respond.SafeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	respond.JSON(w, http.StatusOK, toScoredDTOs(results))
}
