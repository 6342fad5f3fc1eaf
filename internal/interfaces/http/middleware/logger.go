package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"antevus.backend/pkg/logger"
	"antevus.backend/pkg/metrics"
)

// LoggerMiddleware logs HTTP requests using the structured logger. Query
// strings pass through the redactor with the rest of the log line.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		logger.LogRequest(c.Request.Context(), c.Request.Method, path, status, latency, c.ClientIP())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(status)).Inc()
	}
}
