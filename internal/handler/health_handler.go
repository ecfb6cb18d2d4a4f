package handler

import (
	"net/http"
	"time"

	"railboard/pkg/cache"
	"railboard/pkg/database"
	"railboard/pkg/logger"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store  *cache.RedisStore
	db     *database.PostgresDB
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler. db may be nil when no
// database is configured.
func NewHealthHandler(store *cache.RedisStore, db *database.PostgresDB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		db:     db,
		logger: log,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := make(map[string]string)
	status := "healthy"

	if err := h.store.Health(ctx); err != nil {
		h.logger.WithError(err).Warn("Redis health check failed")
		checks["redis"] = err.Error()
		status = "degraded"
	} else {
		checks["redis"] = "ok"
	}

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("Database health check failed")
			checks["database"] = err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   "railboard",
		Checks:    checks,
	})
}
