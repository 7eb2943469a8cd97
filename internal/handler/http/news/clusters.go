package news

import (
	"net/http"
	"strconv"

	"github.com/cgast/embird/internal/handler/http/respond"
)

// ClustersHandler answers GET /api/news/clusters. The response is a map
// keyed by cluster position, largest cluster first at key "0".
type ClustersHandler struct{ Viz Visualizer }

func (h ClustersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Viz.Clusters(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make(map[string]ClusterDTO, len(snap.Clusters))
	for i, node := range snap.Clusters {
		out[strconv.Itoa(i)] = toClusterDTO(node)
	}
	respond.JSON(w, http.StatusOK, out)
}
