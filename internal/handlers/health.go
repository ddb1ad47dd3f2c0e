package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"docchat-ai/internal/contextutil"
)

// CollectionChecker is the piece of the vector store the health check needs.
type CollectionChecker interface {
	CollectionExists(ctx context.Context) (bool, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store              CollectionChecker
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store CollectionChecker) *HealthHandler {
	return &HealthHandler{
		store:              store,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// ServeHTTP returns 200 when the vector store collection is reachable,
// 503 otherwise. The completion service is not probed to avoid latency;
// the vector store is the critical dependency.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"vector_store": "ok"}
	status := "healthy"
	httpStatus := http.StatusOK

	exists, err := h.store.CollectionExists(checkCtx)
	if err != nil || !exists {
		if err != nil {
			logger.WarnContext(ctx, "vector store health check failed", "error", err)
		}
		checks["vector_store"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
