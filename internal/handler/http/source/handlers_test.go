package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/repository"
)

type fakeRepo struct {
	repository.SourceRepository
	sources map[int64]*entity.Source
	nextID  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sources: map[int64]*entity.Source{}, nextID: 1}
}

func (f *fakeRepo) Create(ctx context.Context, src *entity.Source) (*entity.Source, error) {
	for _, existing := range f.sources {
		if existing.URL == src.URL {
			return nil, repository.ErrDuplicate
		}
	}
	src.ID = f.nextID
	src.CreatedAt = time.Now().UTC()
	src.UpdatedAt = src.CreatedAt
	f.nextID++
	f.sources[src.ID] = src
	return src, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	src, ok := f.sources[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return src, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]*entity.Source, error) {
	out := make([]*entity.Source, 0, len(f.sources))
	for _, s := range f.sources {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.sources[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.sources, id)
	return nil
}

func newMux(repo repository.SourceRepository, enabled bool) *http.ServeMux {
	mux := http.NewServeMux()
	Register(mux, repo, enabled)
	return mux
}

func TestCreateAndGet(t *testing.T) {
	repo := newFakeRepo()
	mux := newMux(repo, true)

	body := `{"url":"https://example.com/feed","name":"Example","type":"rss"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/urls", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created DTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, int64(1), created.ID)
	assert.True(t, created.Active)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/urls/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	mux := newMux(newFakeRepo(), true)

	for _, body := range []string{
		`not json`,
		`{"url":"","name":"x","type":"rss"}`,
		`{"url":"ftp://example.com","name":"x","type":"rss"}`,
		`{"url":"https://example.com","name":"x","type":"atom"}`,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/urls", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestCreateDuplicateURL(t *testing.T) {
	mux := newMux(newFakeRepo(), true)
	body := `{"url":"https://example.com/feed","name":"Example","type":"rss"}`

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/urls", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/urls", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	repo.sources[3] = &entity.Source{ID: 3, URL: "https://example.com", Name: "X", Type: "rss"}
	mux := newMux(repo, true)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/urls/3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/urls/3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisabledFlagAnswers403(t *testing.T) {
	mux := newMux(newFakeRepo(), false)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/urls", nil),
		httptest.NewRequest(http.MethodPost, "/api/urls", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodGet, "/api/urls/1", nil),
		httptest.NewRequest(http.MethodDelete, "/api/urls/1", nil),
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", req.Method, req.URL.Path)
	}
}
