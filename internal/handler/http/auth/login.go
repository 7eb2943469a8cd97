// Package auth provides the admin login endpoint used by the management
// UI. Credentials come from configuration; the returned token is a
// static marker, not a session.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cgast/embird/internal/handler/http/respond"
)

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler answers POST /api/auth/login.
type LoginHandler struct {
	AdminEmail    string
	AdminPassword string
}

// Register wires the auth handlers onto the mux.
func Register(mux *http.ServeMux, adminEmail, adminPassword string) {
	mux.Handle("POST /api/auth/login", LoginHandler{
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	})
}

func (h LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	if h.AdminEmail == "" || h.AdminPassword == "" {
		respond.Error(w, http.StatusUnauthorized, errors.New("login is not configured"))
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.AdminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.AdminPassword)) == 1
	if !userOK || !passOK {
		respond.Error(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"token": "authenticated"})
}
