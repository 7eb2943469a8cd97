package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/cgast/embird/internal/handler/http/respond"
)

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks,omitempty"`
}

// CheckStatus is the result of one health check.
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthHandler answers GET /api/health, pinging the database when one
// is configured.
type HealthHandler struct {
	DB *sql.DB
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := map[string]CheckStatus{}

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			checks["database"] = CheckStatus{Status: "unhealthy", Message: err.Error()}
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		} else {
			checks["database"] = CheckStatus{Status: "healthy"}
		}
	}

	respond.JSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}
