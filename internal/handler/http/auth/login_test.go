package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postLogin(t *testing.T, handler LoginHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	return rec
}

func TestLoginSuccess(t *testing.T) {
	h := LoginHandler{AdminEmail: "admin@example.com", AdminPassword: "s3cret"}
	rec := postLogin(t, h, `{"username":"admin@example.com","password":"s3cret"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "authenticated", body["token"])
}

func TestLoginWrongPassword(t *testing.T) {
	h := LoginHandler{AdminEmail: "admin@example.com", AdminPassword: "s3cret"}
	rec := postLogin(t, h, `{"username":"admin@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnconfiguredAlwaysFails(t *testing.T) {
	h := LoginHandler{}
	rec := postLogin(t, h, `{"username":"","password":""}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginBadBody(t *testing.T) {
	h := LoginHandler{AdminEmail: "a", AdminPassword: "b"}
	rec := postLogin(t, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
