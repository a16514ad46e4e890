package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/rag"
)

// Default result sizes for retrieval endpoints.
const (
	defaultTopK         = 5
	defaultSuggestLimit = 3
)

// QueryHandler serves retrieval endpoints.
type QueryHandler struct {
	svc QueryService
	log *logrus.Logger
}

// NewQueryHandler creates a QueryHandler.
func NewQueryHandler(svc QueryService, log *logrus.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, log: log}
}

type queryResponse struct {
	RelevantNodes     []NodeResponse `json:"relevant_nodes"`
	PrerequisiteChain []NodeResponse `json:"prerequisite_chain"`
	SuggestedReview   []NodeResponse `json:"suggested_review"`
	Confidence        float64        `json:"confidence"`
	Prompt            string         `json:"prompt"`
	TutorPrompt       string         `json:"tutor_prompt"`
}

type learningPathResponse struct {
	Path             []NodeResponse `json:"path"`
	EstimatedMinutes int            `json:"estimated_minutes"`
}

type suggestionResponse struct {
	Node   NodeResponse `json:"node"`
	Reason string       `json:"reason"`
}

func (h *QueryHandler) bind(c *gin.Context) (models.QueryRequest, bool) {
	var req models.QueryRequest
	if !bindJSON(c, &req) {
		return req, false
	}

	if err := req.Validate(); err != nil {
		respondServiceError(c, h.log, err, "validating query")

		return req, false
	}

	return req, true
}

// Query handles POST /api/v1/query.
func (h *QueryHandler) Query(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = defaultTopK
	}

	rc, err := h.svc.Query(c.Request.Context(), req.Query, topK)
	if err != nil {
		respondServiceError(c, h.log, err, "building query context")

		return
	}

	now := h.svc.Now()
	c.JSON(http.StatusOK, queryResponse{
		RelevantNodes:     toResponses(rc.RelevantNodes, now),
		PrerequisiteChain: toResponses(rc.PrerequisiteChain, now),
		SuggestedReview:   toResponses(rc.SuggestedReview, now),
		Confidence:        rc.Confidence,
		Prompt:            rag.FormatPrompt(rc),
		TutorPrompt:       rag.TutorPrompt(req.Query, rc, req.Transcript),
	})
}

// LearningPath handles POST /api/v1/query/learning-path.
func (h *QueryHandler) LearningPath(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	lp, err := h.svc.LearningPath(c.Request.Context(), req.Query)
	if err != nil {
		respondServiceError(c, h.log, err, "building learning path")

		return
	}

	c.JSON(http.StatusOK, learningPathResponse{
		Path:             toResponses(lp.Path, h.svc.Now()),
		EstimatedMinutes: lp.EstimatedMinutes,
	})
}

// Suggest handles POST /api/v1/query/suggest.
func (h *QueryHandler) Suggest(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultSuggestLimit
	}

	suggestions, err := h.svc.SuggestNext(c.Request.Context(), req.Query, limit)
	if err != nil {
		respondServiceError(c, h.log, err, "suggesting concepts")

		return
	}

	now := h.svc.Now()
	out := make([]suggestionResponse, len(suggestions))
	for i, s := range suggestions {
		out[i] = suggestionResponse{Node: toResponse(s.Node, now), Reason: s.Reason}
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": out})
}
