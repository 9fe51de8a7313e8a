package http

import (
	"net/http"

	"github.com/orlevy/shortly-bot/internal/constants"
	"github.com/orlevy/shortly-bot/pkg/httputils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles the index, health and metrics endpoints.
type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Index returns basic service information for the root path.
func (h *HealthHandler) Index(w http.ResponseWriter, r *http.Request) {
	httputils.RespondJSON(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "URL Shortener Bot",
		"version": h.version,
	})
}

// Health returns the health status of the service.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputils.RespondJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": constants.ServiceName,
	})
}

// Metrics returns Prometheus metrics.
func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}
