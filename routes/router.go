package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/middleware"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the services and clients the HTTP layer is built from.
// Redis, Metrics and Checks are optional.
type Dependencies struct {
	Documents *services.DocumentService
	Chat      *services.ChatService
	Export    *services.ExportService
	Redis     *redis.Client
	Metrics   *telemetry.Metrics
	Checks    map[string]HealthCheck
}

// SetupRouter builds the gin engine with the middleware chain and every API route.
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.AccessLog())
	if cfg.OTelEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))

	router.GET("/health", healthHandler(deps.Checks))

	var limiter gin.HandlerFunc
	if deps.Redis != nil {
		limiter = middleware.RateLimitMiddleware(deps.Redis, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second)
	}

	api := router.Group("/api")
	SetupUploadRoutes(api, cfg, deps.Documents)
	SetupChatRoutes(api, cfg, deps.Chat, limiter)
	SetupDocumentRoutes(api, deps.Documents, deps.Export)

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		status := http.StatusOK
		components := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     state,
			"timestamp":  time.Now(),
			"components": components,
		})
	}
}
