package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GraphHandler serves whole-collection endpoints.
type GraphHandler struct {
	svc GraphService
	log *logrus.Logger
}

// NewGraphHandler creates a GraphHandler.
func NewGraphHandler(svc GraphService, log *logrus.Logger) *GraphHandler {
	return &GraphHandler{svc: svc, log: log}
}

// Stats handles GET /api/v1/stats.
func (h *GraphHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

// Clear handles DELETE /api/v1/graph?confirm=true.
func (h *GraphHandler) Clear(c *gin.Context) {
	if c.Query("confirm") != "true" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "clearing the graph requires confirm=true")

		return
	}

	removed := h.svc.Stats().Total
	h.svc.Clear()

	h.log.WithFields(logrus.Fields{"action": "graph.clear", "removed": removed}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Rebuild handles POST /api/v1/graph/rebuild.
func (h *GraphHandler) Rebuild(c *gin.Context) {
	start := time.Now()

	if err := h.svc.Rebuild(c.Request.Context()); err != nil {
		respondServiceError(c, h.log, err, "rebuilding connections")

		return
	}

	elapsed := time.Since(start)
	h.log.WithFields(logrus.Fields{"action": "graph.rebuild", "duration": elapsed.String()}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"rebuilt": true, "duration_ms": elapsed.Milliseconds()})
}
