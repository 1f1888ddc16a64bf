package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-chat-backend/models"
	"pdf-chat-backend/services"
)

func SetupDocumentRoutes(api *gin.RouterGroup, documents *services.DocumentService, export *services.ExportService) {
	docs := api.Group("/documents")

	docs.GET("", func(c *gin.Context) {
		list, err := documents.List(c.Request.Context())
		if err != nil {
			respondServiceError(c, err)
			return
		}

		summaries := make([]models.DocumentSummary, 0, len(list))
		for i := range list {
			summaries = append(summaries, list[i].Summary())
		}
		c.JSON(http.StatusOK, summaries)
	})

	docs.GET("/:document_id", func(c *gin.Context) {
		doc, err := documents.Get(c.Request.Context(), c.Param("document_id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	docs.DELETE("/:document_id", func(c *gin.Context) {
		if err := documents.Delete(c.Request.Context(), c.Param("document_id")); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
	})

	docs.GET("/:document_id/conversation/export", func(c *gin.Context) {
		file, err := export.ExportConversation(c.Request.Context(), c.Param("document_id"), c.Query("format"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
		c.Data(http.StatusOK, file.ContentType, file.Data)
	})
}
