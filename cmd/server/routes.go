package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"antevus.backend/internal/interfaces/http/handlers"
	"antevus.backend/internal/interfaces/http/middleware"
	"antevus.backend/pkg/metrics"
)

type routeDeps struct {
	apiKeyHandler      *handlers.ApiKeyHandler
	csrfHandler        *handlers.CSRFHandler
	sessionHandler     *handlers.SessionHandler
	dualAuthMiddleware gin.HandlerFunc
	csrfMiddleware     gin.HandlerFunc
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// CSRF token issuance (protected, safe method)
		v1.GET("/csrf-token", d.dualAuthMiddleware, d.csrfHandler.IssueToken)

		// API key lifecycle (protected; state changes need a CSRF token
		// for browser sessions)
		apiKeys := v1.Group("/api-keys")
		apiKeys.Use(d.dualAuthMiddleware, d.csrfMiddleware)
		{
			apiKeys.POST("", d.apiKeyHandler.CreateApiKey)
			apiKeys.GET("", d.apiKeyHandler.ListApiKeys)
			apiKeys.DELETE("/:id", d.apiKeyHandler.RevokeApiKey)
		}

		// Thread session vault (protected)
		sessions := v1.Group("/sessions")
		sessions.Use(d.dualAuthMiddleware, d.csrfMiddleware)
		{
			sessions.GET("/status", d.sessionHandler.Status)
			sessions.PUT("/:threadId", d.sessionHandler.PutSession)
			sessions.GET("/:threadId", d.sessionHandler.GetSession)
			sessions.DELETE("/:threadId", d.sessionHandler.DeleteSession)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(d.dualAuthMiddleware, middleware.RequireAdmin())
		{
			admin.POST("/sessions/clear", d.sessionHandler.ClearAll)
		}
	}
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-API-Key, X-CSRF-Token, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
