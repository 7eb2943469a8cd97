package preference

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/handler/http/respond"
	"github.com/cgast/embird/internal/repository"
)

// Embedder vectorizes preference text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Refresher rebuilds the projection snapshot so a changed preference
// shows up without waiting for the next scheduler tick.
type Refresher interface {
	RefreshSnapshots(ctx context.Context) error
}

// Handlers holds the shared dependencies of the preference endpoints.
type Handlers struct {
	Repo      repository.PreferenceRepository
	Embedder  Embedder
	Refresher Refresher
	Logger    *slog.Logger
}

// Register wires the /api/preference-vectors handlers onto the mux.
// When enabled is false every route answers 403.
func Register(mux *http.ServeMux, h *Handlers, enabled bool) {
	guard := func(fn http.HandlerFunc) http.Handler {
		if enabled {
			return fn
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond.Error(w, http.StatusForbidden, errors.New("preference management is disabled"))
		})
	}

	mux.Handle("GET /api/preference-vectors", guard(h.list))
	mux.Handle("POST /api/preference-vectors", guard(h.create))
	mux.Handle("GET /api/preference-vectors/{id}", guard(h.get))
	mux.Handle("PUT /api/preference-vectors/{id}", guard(h.update))
	mux.Handle("DELETE /api/preference-vectors/{id}", guard(h.delete))
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Repo.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTOs(prefs))
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("preference vector not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(p))
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	p, err := entity.NewPreferenceVector(req.Title, req.Description, req.Color, nil)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	vec, err := h.Embedder.Embed(r.Context(), p.EmbeddingText())
	if err != nil {
		respond.Error(w, http.StatusUnprocessableEntity, errors.New("embedding failed"))
		return
	}
	p.Embedding = vec

	created, err := h.Repo.Create(r.Context(), p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			respond.Error(w, http.StatusBadRequest, errors.New("preference title already exists"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	h.refreshAsync()
	respond.JSON(w, http.StatusCreated, toDTO(created))
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	p, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("preference vector not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	p.Title = req.Title
	p.Description = req.Description
	p.Color = req.Color
	if err := p.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	// The text changed, so the old vector no longer describes it.
	vec, err := h.Embedder.Embed(r.Context(), p.EmbeddingText())
	if err != nil {
		respond.Error(w, http.StatusUnprocessableEntity, errors.New("embedding failed"))
		return
	}
	p.Embedding = vec

	updated, err := h.Repo.Update(r.Context(), p)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	h.refreshAsync()
	respond.JSON(w, http.StatusOK, toDTO(updated))
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("preference vector not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	h.refreshAsync()
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// refreshAsync rebuilds the snapshots in the background; a failed
// refresh only delays visibility until the next scheduled tick.
func (h *Handlers) refreshAsync() {
	if h.Refresher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := h.Refresher.RefreshSnapshots(ctx); err != nil {
			h.Logger.Warn("snapshot refresh after preference change failed", slog.Any("error", err))
		}
	}()
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid preference vector id"))
		return 0, false
	}
	return id, true
}
