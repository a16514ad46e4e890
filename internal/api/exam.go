package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
)

// ExamHandler serves exam relevance endpoints.
type ExamHandler struct {
	svc ExamService
	log *logrus.Logger
}

// NewExamHandler creates an ExamHandler.
func NewExamHandler(svc ExamService, log *logrus.Logger) *ExamHandler {
	return &ExamHandler{svc: svc, log: log}
}

// bindTranscript accepts an empty body as an empty transcript.
func bindTranscript(c *gin.Context) (models.TranscriptRequest, bool) {
	var req models.TranscriptRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return req, false
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return req, false
	}

	return req, true
}

// Predictions handles POST /api/v1/exam/predictions. With a limit only the
// top topics are returned.
func (h *ExamHandler) Predictions(c *gin.Context) {
	req, ok := bindTranscript(c)
	if !ok {
		return
	}

	var preds []models.ExamPrediction
	if req.Limit > 0 {
		preds = h.svc.TopTopics(req.Transcript, req.Limit)
	} else {
		preds = h.svc.DuePredictions(req.Transcript)
	}

	c.JSON(http.StatusOK, gin.H{"predictions": preds})
}

// Priorities handles POST /api/v1/exam/priorities.
func (h *ExamHandler) Priorities(c *gin.Context) {
	req, ok := bindTranscript(c)
	if !ok {
		return
	}

	prios := h.svc.StudyPriority(req.Transcript)
	if req.Limit > 0 && len(prios) > req.Limit {
		prios = prios[:req.Limit]
	}

	c.JSON(http.StatusOK, gin.H{"priorities": prios})
}
