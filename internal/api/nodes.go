package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
)

const defaultSimilarLimit = 5

// NodeHandler serves node CRUD endpoints.
type NodeHandler struct {
	svc NodeService
	log *logrus.Logger
}

// NewNodeHandler creates a NodeHandler with the given service and logger.
func NewNodeHandler(svc NodeService, log *logrus.Logger) *NodeHandler {
	return &NodeHandler{svc: svc, log: log}
}

// List handles GET /api/v1/nodes. Optional filters: category, session_id.
func (h *NodeHandler) List(c *gin.Context) {
	category := models.Category(c.Query("category"))
	if category != "" && !category.Valid() {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, models.ErrInvalidCategory.Error())

		return
	}

	sessionID := c.Query("session_id")
	limit := parseInt(c.DefaultQuery("limit", "50"), defaultPageSize)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	var matched []models.Node
	for _, n := range h.svc.ListNodes() {
		if category != "" && n.Category != category {
			continue
		}

		if sessionID != "" && n.SessionID != sessionID {
			continue
		}

		matched = append(matched, n)
	}

	total := len(matched)
	page := matched[min(offset, total):min(offset+limit, total)]

	c.JSON(http.StatusOK, gin.H{
		"nodes":    toResponses(page, h.svc.Now()),
		"total":    total,
		"has_more": offset+len(page) < total,
	})
}

// Get handles GET /api/v1/nodes/:id.
func (h *NodeHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	node, err := h.svc.GetNode(id)
	if err != nil {
		respondServiceError(c, h.log, err, "getting node")

		return
	}

	c.JSON(http.StatusOK, toResponse(node, h.svc.Now()))
}

// Create handles POST /api/v1/nodes.
func (h *NodeHandler) Create(c *gin.Context) {
	var req models.CreateNodeRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		respondServiceError(c, h.log, err, "validating node")

		return
	}

	node, err := h.svc.AddNode(c.Request.Context(), req.ToNewNode())
	if err != nil {
		respondServiceError(c, h.log, err, "creating node")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "node.create", "node_id": node.ID, "category": node.Category}).Info("audit")

	c.JSON(http.StatusCreated, toResponse(node, h.svc.Now()))
}

// Update handles PATCH /api/v1/nodes/:id.
func (h *NodeHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var patch models.NodePatch
	if !bindJSON(c, &patch) {
		return
	}

	if err := models.ValidateStruct(&patch); err != nil {
		respondServiceError(c, h.log, err, "validating patch")

		return
	}

	node, err := h.svc.UpdateNode(c.Request.Context(), id, patch)
	if err != nil {
		respondServiceError(c, h.log, err, "updating node")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "node.update", "node_id": id, "reembedded": patch.TouchesText()}).Info("audit")

	c.JSON(http.StatusOK, toResponse(node, h.svc.Now()))
}

// Delete handles DELETE /api/v1/nodes/:id.
func (h *NodeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveNode(id); err != nil {
		respondServiceError(c, h.log, err, "deleting node")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "node.delete", "node_id": id}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type similarResponse struct {
	NodeResponse
	Similarity float64 `json:"similarity"`
}

// Similar handles GET /api/v1/nodes/:id/similar.
func (h *NodeHandler) Similar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	k := min(parseInt(c.Query("limit"), defaultSimilarLimit), models.MaxTopK)

	scored, err := h.svc.SimilarTo(id, k)
	if err != nil {
		respondServiceError(c, h.log, err, "finding similar nodes")

		return
	}

	now := h.svc.Now()
	out := make([]similarResponse, len(scored))
	for i, s := range scored {
		out[i] = similarResponse{NodeResponse: toResponse(s.Node, now), Similarity: s.Similarity}
	}

	c.JSON(http.StatusOK, gin.H{"nodes": out})
}
