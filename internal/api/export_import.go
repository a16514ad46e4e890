package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
)

// ExportImportHandler serves snapshot backup and restore endpoints.
type ExportImportHandler struct {
	svc     ExportImportService
	version string
	log     *logrus.Logger
}

// NewExportImportHandler creates an ExportImportHandler.
func NewExportImportHandler(svc ExportImportService, version string, log *logrus.Logger) *ExportImportHandler {
	return &ExportImportHandler{svc: svc, version: version, log: log}
}

// Export handles GET /api/v1/export.
// Returns the whole collection as a JSON file attachment.
func (h *ExportImportHandler) Export(c *gin.Context) {
	data := h.svc.Export()

	filename := fmt.Sprintf("nexus-export-%s.json", data.ExportedAt.Format("20060102T150405Z"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("X-Nexus-Version", h.version)

	h.log.WithFields(logrus.Fields{
		"action":     "export",
		"node_count": len(data.Nodes),
	}).Info("audit")

	c.JSON(http.StatusOK, data)
}

// Import handles POST /api/v1/import.
// Replaces the whole collection with the snapshot in the body.
func (h *ExportImportHandler) Import(c *gin.Context) {
	var data models.ExportFormat
	if !bindJSON(c, &data) {
		return
	}

	result, err := h.svc.Import(&data)
	if err != nil {
		respondServiceError(c, h.log, err, "importing snapshot")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":         "import",
		"nodes_loaded":   result.NodesLoaded,
		"schema_version": data.SchemaVersion,
		"source_version": data.NexusVersion,
	}).Info("audit")

	c.JSON(http.StatusOK, result)
}
