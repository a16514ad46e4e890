// Package httputil holds the JSON error envelope shared by handlers and middleware.
package httputil

import "github.com/gin-gonic/gin"

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// ErrorBody is the body of every error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError aborts the request with status and an ErrorBody tagged with
// the request ID, when one was assigned.
func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}
