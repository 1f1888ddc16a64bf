package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes used in ErrorResponse.
const (
	CodeBadRequest            = "bad_request"
	CodeInvalidInput          = "invalid_input"
	CodeNotFound              = "not_found"
	CodeEmbeddingUnavailable  = "embedding_unavailable"
	CodeRetrievalUnavailable  = "retrieval_unavailable"
	CodeGenerationUnavailable = "generation_unavailable"
	CodeRequestCancelled      = "request_cancelled"
	CodeRequestTimeout        = "request_timeout"
	CodeRequestTooLarge       = "request_too_large"
	CodeInternal              = "internal_error"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, CodeBadRequest, message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, CodeNotFound, message, nil)
}

// RespondWithUnavailable sends a 503 for a failing upstream dependency
func RespondWithUnavailable(c *gin.Context, errorCode, message string) {
	RespondWithError(c, http.StatusServiceUnavailable, errorCode, message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, CodeInternal, message, details)
}
