package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"antevus.backend/internal/interfaces/http/response"
	"antevus.backend/pkg/jwt"
	"antevus.backend/pkg/logger"
	"antevus.backend/pkg/redis"
)

// DualAuthMiddleware accepts either a Bearer session token or an API key.
// When both are present the API key wins, so programmatic callers keep their
// per-key rate limits and usage accounting.
func DualAuthMiddleware(jwtService *jwt.Service, keys KeyValidator, limiter *redis.RateLimiter) gin.HandlerFunc {
	apiKeyAuth := APIKeyAuthMiddleware(keys, limiter)

	return func(c *gin.Context) {
		if c.GetHeader(APIKeyHeader) != "" {
			apiKeyAuth(c)
			return
		}

		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" || !strings.HasPrefix(authHeader, BearerPrefix) {
			response.AbortUnauthorized(c, "Authentication required (session token or API key)")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.Debug(c.Request.Context(), "Session token rejected", zap.Error(err))
			if err == jwt.ErrExpiredToken {
				response.AbortUnauthorized(c, "Token has expired")
				return
			}
			response.AbortUnauthorized(c, "Invalid token")
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, claims.Role)

		c.Next()
	}
}
