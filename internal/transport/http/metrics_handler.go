package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus exposition
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler serves exposition. A nil handler falls back to the
// default Prometheus registry.
func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	if exposition == nil {
		exposition = promhttp.Handler()
	}
	return &MetricsHandler{handler: exposition}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
