package news

import (
	"net/http"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/handler/http/respond"
)

// UMAPHandler answers GET /api/news/umap with the projected point list.
type UMAPHandler struct{ Viz Visualizer }

func (h UMAPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Viz.UMAP(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	points := snap.Points
	if points == nil {
		points = []entity.ProjectionPoint{}
	}
	respond.JSON(w, http.StatusOK, points)
}
