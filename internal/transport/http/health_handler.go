package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler answers liveness and readiness probes
type HealthHandler struct {
	runs    RunSource
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(runs RunSource) *HealthHandler {
	return &HealthHandler{runs: runs, started: time.Now()}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Readiness handles GET /readyz. The server is ready once a run has started.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil || h.runs.LatestReport() == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{"status": "waiting"})
		return
	}
	render.JSON(w, r, map[string]interface{}{"status": "ready"})
}
