package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/httputil"
	"github.com/studynexus/nexus/internal/metrics"
	"github.com/studynexus/nexus/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeInvalidQuality  = "invalid_quality"
	ErrCodeNotFound        = "not_found"
	ErrCodeInternalError   = "internal_error"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
	ErrCodeUnsupported     = "unsupported_version"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a service error onto a response. Unknown errors
// are logged and reported as 500 without detail.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, op string) {
	switch {
	case errors.Is(err, models.ErrNodeNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "node not found")
	case errors.Is(err, models.ErrInvalidQuality):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidQuality, models.ErrInvalidQuality.Error())
	case errors.Is(err, models.ErrEmptyQuery), errors.Is(err, models.ErrMissingLabel):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidCategory):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, models.ErrSnapshotVersion):
		respondError(c, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
	case c.Request.Context().Err() != nil:
		// Client went away; nobody reads the response.
		c.Abort()
	default:
		log.WithError(err).Error(op)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
