// Package api provides the HTTP handlers for pathconvert.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// Database is what the health checks need from the pool.
type Database interface {
	HealthCheck(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger is an optional dependency checked by readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db                  Database
	cache               Pinger
	clients             func() int
	log                 *logrus.Logger
	version             string
	startTime           time.Time
	embeddingModel      string
	embeddingDimensions int
}

// NewHealthHandler creates a HealthHandler. db, cache and clients may be nil.
func NewHealthHandler(db Database, cache Pinger, clients func() int, log *logrus.Logger, version, embeddingModel string, embeddingDimensions int) *HealthHandler {
	return &HealthHandler{
		db:                  db,
		cache:               cache,
		clients:             clients,
		log:                 log,
		version:             version,
		startTime:           time.Now(),
		embeddingModel:      embeddingModel,
		embeddingDimensions: embeddingDimensions,
	}
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type healthResponse struct {
	Status              string  `json:"status"`
	Version             string  `json:"version"`
	Database            string  `json:"database"`
	EmbeddingModel      string  `json:"embedding_model"`
	EmbeddingDimensions int     `json:"embedding_dimensions"`
	WebSocketClients    int     `json:"websocket_clients"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// Liveness handles GET /health. It always answers 200; the database field is
// informational.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:              "ok",
		Version:             h.version,
		Database:            "connected",
		EmbeddingModel:      h.embeddingModel,
		EmbeddingDimensions: h.embeddingDimensions,
		UptimeSeconds:       time.Since(h.startTime).Seconds(),
	}

	if h.db == nil {
		resp.Database = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	}

	if h.clients != nil {
		resp.WebSocketClients = h.clients()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /ready. The database and schema must be healthy; the
// cache only degrades readiness since the read path works without it.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{"database": "ok", "schema": "ok"}
	status, code := "ready", http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.db == nil {
		checks["database"], checks["schema"] = "not_configured", "unknown"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := h.db.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		checks["database"], checks["schema"] = "error", "unknown"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := h.checkSchema(ctx); err != nil {
		h.log.WithError(err).Error("readiness: schema check failed")
		checks["schema"] = "error"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	if h.cache != nil {
		checks["cache"] = "ok"

		if err := h.cache.Ping(ctx); err != nil {
			h.log.WithError(err).Warn("readiness: cache ping failed")
			checks["cache"] = "degraded"
		}
	}

	c.JSON(code, readinessResponse{Status: status, Checks: checks})
}

func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var n int
	if err := h.db.QueryRow(ctx, "SELECT count(*) FROM jobs WHERE status = 'running'").Scan(&n); err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	return nil
}
