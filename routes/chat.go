package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/models"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"
)

// SetupChatRoutes registers the synchronous and realtime chat endpoints.
// limiter may be nil.
func SetupChatRoutes(api *gin.RouterGroup, cfg *config.Config, chat *services.ChatService, limiter gin.HandlerFunc) {
	handlers := []gin.HandlerFunc{}
	if limiter != nil {
		handlers = append(handlers, limiter)
	}

	api.POST("/chat", append(handlers, func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, utils.CodeInvalidInput, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := utils.WithCustomTimeout(c.Request.Context(), cfg.ChatTimeout)
		defer cancel()

		result, err := chat.Respond(ctx, req.Message, req.DocumentID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})...)

	api.GET("/chat/:document_id/history", func(c *gin.Context) {
		documentID := c.Param("document_id")
		turns, err := chat.History(c.Request.Context(), documentID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"documentId": documentID,
			"turns":      turns,
		})
	})

	api.DELETE("/chat/:document_id/history", func(c *gin.Context) {
		if err := chat.Reset(c.Request.Context(), c.Param("document_id")); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Conversation cleared"})
	})

	api.GET("/ws/chat/:document_id", append(handlers, chatSocketHandler(chat, cfg.ChatTimeout))...)
}
