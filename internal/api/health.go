// Package api provides the HTTP handlers and router for nexus.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/ws"
)

// EmbeddingInfo describes the active embedding provider.
type EmbeddingInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions"`
	Remote     bool   `json:"remote"`
}

// StatsSource supplies collection statistics.
type StatsSource interface {
	Stats() models.Stats
}

// HealthDeps holds the collaborators of a HealthHandler.
type HealthDeps struct {
	Storage     HealthChecker
	StorageKind string
	Hub         *ws.Hub
	Stats       StatsSource
	Embeddings  EmbeddingInfo
	Version     string
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	deps      HealthDeps
	log       *logrus.Logger
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler with the given dependencies.
func NewHealthHandler(deps HealthDeps, log *logrus.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, log: log, startTime: time.Now()}
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	Storage       string        `json:"storage"`
	StorageStatus string        `json:"storage_status"`
	Embeddings    EmbeddingInfo `json:"embeddings"`
	Nodes         int           `json:"nodes"`
	WSClients     int           `json:"ws_clients"`
	UptimeSeconds float64       `json:"uptime_seconds"`
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.deps.Version,
		Storage:       h.deps.StorageKind,
		StorageStatus: h.storageStatus(c.Request.Context()),
		Embeddings:    h.deps.Embeddings,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.deps.Stats != nil {
		resp.Nodes = h.deps.Stats.Stats().Total
	}

	if h.deps.Hub != nil {
		resp.WSClients = h.deps.Hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. Only storage can make the service
// not ready; a remote embedding outage degrades to the fallback.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{"storage": h.storageStatus(c.Request.Context())}
	status, code := "ready", http.StatusOK

	if checks["storage"] == "error" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, readinessResponse{Status: status, Checks: checks})
}

func (h *HealthHandler) storageStatus(ctx context.Context) string {
	if h.deps.Storage == nil {
		return "not_configured"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.deps.Storage.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Warn("storage health check failed")

		return "error"
	}

	return "ok"
}
