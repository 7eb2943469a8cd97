package source

import (
	"errors"
	"net/http"

	"github.com/cgast/embird/internal/handler/http/respond"
	"github.com/cgast/embird/internal/repository"
)

// Register wires the /api/urls handlers onto the mux. When enabled is
// false every route answers 403 so the registry stays read-only in
// locked-down deployments.
func Register(mux *http.ServeMux, repo repository.SourceRepository, enabled bool) {
	guard := func(h http.Handler) http.Handler {
		if enabled {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond.Error(w, http.StatusForbidden, errors.New("url management is disabled"))
		})
	}

	mux.Handle("GET /api/urls", guard(ListHandler{Repo: repo}))
	mux.Handle("POST /api/urls", guard(CreateHandler{Repo: repo}))
	mux.Handle("GET /api/urls/{id}", guard(GetHandler{Repo: repo}))
	mux.Handle("DELETE /api/urls/{id}", guard(DeleteHandler{Repo: repo}))
}
