package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/srs"
)

// Review window limits, in hours.
const (
	defaultUpcomingHours = 24
	maxUpcomingHours     = 24 * 30
	defaultHistoryLimit  = 20
)

// ReviewHandler serves spaced-repetition endpoints.
type ReviewHandler struct {
	svc ReviewService
	log *logrus.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(svc ReviewService, log *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{svc: svc, log: log}
}

type reviewResponse struct {
	NodeResponse
	QualityLabel string `json:"quality_label"`
}

// Review handles POST /api/v1/nodes/:id/review.
func (h *ReviewHandler) Review(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		respondServiceError(c, h.log, err, "validating review")

		return
	}

	node, err := h.svc.Review(c.Request.Context(), id, *req.Quality)
	if err != nil {
		respondServiceError(c, h.log, err, "reviewing node")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":   "node.review",
		"node_id":  id,
		"quality":  *req.Quality,
		"interval": node.SRS.Interval,
	}).Info("audit")

	c.JSON(http.StatusOK, reviewResponse{
		NodeResponse: toResponse(node, h.svc.Now()),
		QualityLabel: srs.QualityLabel(*req.Quality),
	})
}

// History handles GET /api/v1/nodes/:id/reviews.
func (h *ReviewHandler) History(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	limit := parseInt(c.Query("limit"), defaultHistoryLimit)

	records, err := h.svc.ReviewHistory(c.Request.Context(), id, limit)
	if err != nil {
		respondServiceError(c, h.log, err, "listing review history")

		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": records})
}

// Due handles GET /api/v1/reviews/due.
func (h *ReviewHandler) Due(c *gin.Context) {
	nodes := h.svc.DueNodes()
	c.JSON(http.StatusOK, gin.H{"nodes": toResponses(nodes, h.svc.Now()), "total": len(nodes)})
}

// Upcoming handles GET /api/v1/reviews/upcoming?hours=N.
func (h *ReviewHandler) Upcoming(c *gin.Context) {
	hours := min(parseInt(c.Query("hours"), defaultUpcomingHours), maxUpcomingHours)

	nodes := h.svc.UpcomingNodes(hours)
	c.JSON(http.StatusOK, gin.H{
		"hours": hours,
		"nodes": toResponses(nodes, h.svc.Now()),
		"total": len(nodes),
	})
}
