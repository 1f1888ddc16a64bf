package routes

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/middleware"
	"pdf-chat-backend/models"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"
)

func SetupUploadRoutes(api *gin.RouterGroup, cfg *config.Config, documents *services.DocumentService) {
	api.POST("/upload", middleware.RequestSizeLimit(cfg.MaxFileSize), func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.RespondWithError(c, http.StatusRequestEntityTooLarge, utils.CodeRequestTooLarge, services.MsgFileTooLarge, nil)
				return
			}
			utils.RespondWithBadRequest(c, "No file uploaded", gin.H{"error": err.Error()})
			return
		}

		if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
			utils.RespondWithError(c, http.StatusBadRequest, utils.CodeInvalidInput, services.MsgOnlyPDF, nil)
			return
		}
		if fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, utils.CodeRequestTooLarge, services.MsgFileTooLarge, gin.H{
				"max_size": cfg.MaxFileSize,
				"received": fileHeader.Size,
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.RespondWithBadRequest(c, "Failed to read uploaded file", gin.H{"error": err.Error()})
			return
		}
		defer file.Close()

		async := cfg.AsyncIngest || c.Query("async") == "true"
		if async && documents.CanEnqueue() {
			doc, taskID, err := documents.UploadAsync(c.Request.Context(), fileHeader.Filename, file)
			if err != nil {
				respondServiceError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, models.UploadResponse{
				DocumentID: doc.ID,
				Message:    "File queued for processing",
				TaskID:     taskID,
				Status:     doc.Status,
			})
			return
		}

		doc, err := documents.Upload(c.Request.Context(), fileHeader.Filename, file)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.UploadResponse{
			DocumentID: doc.ID,
			Message:    "File processed successfully",
		})
	})
}
