package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
)

// ConceptHandler serves lecture concept ingestion.
type ConceptHandler struct {
	svc ConceptService
	log *logrus.Logger
}

// NewConceptHandler creates a ConceptHandler.
func NewConceptHandler(svc ConceptService, log *logrus.Logger) *ConceptHandler {
	return &ConceptHandler{svc: svc, log: log}
}

// Import handles POST /api/v1/concepts/import.
func (h *ConceptHandler) Import(c *gin.Context) {
	var req models.ImportRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	ids, err := h.svc.ImportConcepts(c.Request.Context(), req.SessionID, req.Concepts)
	if err != nil {
		respondServiceError(c, h.log, err, "importing concepts")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":     "concepts.import",
		"session_id": req.SessionID,
		"count":      len(ids),
	}).Info("audit")

	c.JSON(http.StatusCreated, gin.H{"node_ids": ids, "count": len(ids)})
}
