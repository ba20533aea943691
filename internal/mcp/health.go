package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bull/bge-search/internal/search"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	History   string `json:"history"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker interface defines the health check dependency.
// The history storage backends implement this via their Health() method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It reports the index size and checks the history backend, if any.
// An empty index is healthy: searches still answer, with no results.
func NewHealthHandler(engine *search.Engine, history HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Documents: engine.Store().Len(),
			History:   "disabled",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK

		if history != nil {
			if err := history.Health(ctx); err != nil {
				response.Status = "unhealthy"
				response.History = "disconnected"
				code = http.StatusServiceUnavailable
			} else {
				response.History = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
