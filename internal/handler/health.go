package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	redisclient "github.com/yourorg/tourbook/internal/infrastructure/redis"
	"github.com/yourorg/tourbook/pkg/database"
)

// HealthHandler handles liveness and readiness endpoints.
type HealthHandler struct {
	pool   *database.ConnectionPool
	redis  *redisclient.Client
	logger *slog.Logger
}

func NewHealthHandler(pool *database.ConnectionPool, redis *redisclient.Client, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{pool: pool, redis: redis, logger: logger}
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /healthz. Returns 200 while the server is running.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz. Returns 200 only when the intent journal and
// the tag cache are reachable. The two remote stores are not checked here;
// their failures degrade requests, not the whole pod.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)

	dbOK := false
	if h.pool != nil {
		if err := h.pool.Health(ctx); err == nil {
			checks["database"] = "ok"
			dbOK = true
		} else {
			checks["database"] = "error: " + err.Error()
		}
	} else {
		checks["database"] = "not configured"
	}

	redisOK := false
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err == nil {
			checks["redis"] = "ok"
			redisOK = true
		} else {
			checks["redis"] = "error: " + err.Error()
		}
	} else {
		checks["redis"] = "not configured"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !dbOK || !redisOK {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ReadinessResponse{Status: status, Checks: checks})

	h.logger.Info("readiness check",
		slog.String("status", status),
		slog.String("database", checks["database"]),
		slog.String("redis", checks["redis"]),
	)
}
