package source

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/handler/http/respond"
	"github.com/cgast/embird/internal/repository"
)

// ListHandler answers GET /api/urls.
type ListHandler struct{ Repo repository.SourceRepository }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Repo.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTOs(sources))
}

// CreateHandler answers POST /api/urls.
type CreateHandler struct{ Repo repository.SourceRepository }

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	src, err := entity.NewSource(req.URL, req.Name, req.Type)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	if req.Active != nil {
		src.Active = *req.Active
	}

	created, err := h.Repo.Create(r.Context(), src)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			respond.Error(w, http.StatusBadRequest, errors.New("source url already exists"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toDTO(created))
}

// GetHandler answers GET /api/urls/{id}.
type GetHandler struct{ Repo repository.SourceRepository }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid source id"))
		return
	}

	src, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("source not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(src))
}

// DeleteHandler answers DELETE /api/urls/{id}.
type DeleteHandler struct{ Repo repository.SourceRepository }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid source id"))
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, errors.New("source not found"))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
