package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-chat-backend/utils"
)

// RequestSizeLimit rejects bodies declared larger than maxSize and caps the
// body reader for requests that do not declare a length. The multipart
// overhead is allowed on top of maxSize.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	const multipartOverhead = 1 << 20

	return func(c *gin.Context) {
		limit := maxSize + multipartOverhead
		if c.Request.ContentLength > limit {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				utils.CodeRequestTooLarge,
				"File size exceeds maximum limit",
				gin.H{
					"max_size":    maxSize,
					"received":    c.Request.ContentLength,
					"max_size_mb": maxSize / (1024 * 1024),
				})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
