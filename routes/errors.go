package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/middleware"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"
)

// StatusClientClosedRequest is used when the client went away before the turn finished.
const StatusClientClosedRequest = 499

// respondServiceError maps service error kinds to HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.RespondWithError(c, http.StatusBadRequest, utils.CodeInvalidInput, invalidInputMessage(err), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithNotFound(c, "Document not found")
	case errors.Is(err, services.ErrEmbeddingUnavailable):
		utils.RespondWithUnavailable(c, utils.CodeEmbeddingUnavailable, "Embedding service unavailable")
	case errors.Is(err, services.ErrRetrievalUnavailable):
		utils.RespondWithUnavailable(c, utils.CodeRetrievalUnavailable, "Document index unavailable")
	case errors.Is(err, services.ErrGenerationUnavailable):
		utils.RespondWithError(c, http.StatusBadGateway, utils.CodeGenerationUnavailable, "Language model unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		utils.RespondWithError(c, http.StatusGatewayTimeout, utils.CodeRequestTimeout, "Request timed out", nil)
	case errors.Is(err, context.Canceled):
		utils.RespondWithError(c, StatusClientClosedRequest, utils.CodeRequestCancelled, "Request cancelled", nil)
	default:
		logger.Error("request failed",
			"request_id", middleware.GetRequestID(c),
			"path", c.FullPath(),
			"error", err,
		)
		utils.RespondWithInternalError(c, "Internal server error", nil)
	}
}

// invalidInputMessage strips the error kind so clients see only the reason.
func invalidInputMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, services.ErrInvalidInput.Error()+": "); i >= 0 {
		return msg[i+len(services.ErrInvalidInput.Error())+2:]
	}
	return msg
}
