// Package api contains the HTTP handlers of the storefront: the tenant REST
// API, the HTML pages, health checks and the API documentation.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"forgewealth/storefront/pkg/models"
)

// Version is reported by the health endpoints. Overridden at build time.
var Version = "dev"

// Pinger is a dependency whose reachability decides readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains the operational HTTP handlers.
type Handler struct {
	registry Pinger
	logger   Logger
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(registry Pinger, logger Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "forgewealth-storefront",
		Version:   Version,
	})
}

// HandleReady reports whether the tenant registry is reachable.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.registry.Ping(ctx); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Service Unavailable", "tenant registry is unreachable")
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Service:   "forgewealth-storefront",
		Version:   Version,
	})
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(w http.ResponseWriter, status int, title, detail string) {
	problem := models.ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}
	w.Header().Set("Content-Type", models.ProblemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}
