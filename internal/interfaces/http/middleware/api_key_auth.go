package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"antevus.backend/internal/domain/entities"
	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/interfaces/http/response"
	"antevus.backend/pkg/metrics"
	"antevus.backend/pkg/redis"
)

const (
	// APIKeyHeader carries the plaintext API key.
	APIKeyHeader = "X-API-Key"
	// APIKeyIDKey is the context key for the authenticated key's ID
	APIKeyIDKey = "apiKeyId"
	// APIKeyPermissionsKey is the context key for the key's permissions
	APIKeyPermissionsKey = "apiKeyPermissions"
)

// KeyValidator validates API key candidates and records their usage.
type KeyValidator interface {
	ValidateApiKey(ctx context.Context, candidate string) (*entities.KeyValidation, error)
	RecordUsage(ctx context.Context, id uuid.UUID)
}

// APIKeyAuthMiddleware authenticates requests carrying an X-API-Key header.
// The client is always told the same thing on failure; the precise reason
// goes to the audit trail and metrics only.
func APIKeyAuthMiddleware(keys KeyValidator, limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := c.GetHeader(APIKeyHeader)
		if candidate == "" {
			response.AbortUnauthorized(c, "API key is required")
			return
		}

		validation, err := keys.ValidateApiKey(c.Request.Context(), candidate)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if !validation.Valid {
			metrics.ObserveValidation(string(validation.Reason))
			response.AbortUnauthorized(c, "Invalid API key")
			return
		}
		metrics.ObserveValidation("")

		key := validation.Key
		if len(key.IPAllowlist) > 0 && !ipAllowed(c.ClientIP(), key.IPAllowlist) {
			response.AbortForbidden(c, "IP address not allowed")
			return
		}

		if limiter != nil {
			allowed, _ := limiter.Allow(c.Request.Context(), key.ID.String(), key.RateLimit)
			if !allowed {
				metrics.RateLimitRejections.Inc()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"code":    domainerrors.CodeLimitExceeded,
					"message": "Rate limit exceeded",
				})
				return
			}
		}

		keys.RecordUsage(c.Request.Context(), key.ID)

		c.Set(UserIDKey, key.UserID)
		c.Set(APIKeyIDKey, key.ID)
		c.Set(APIKeyPermissionsKey, key.Permissions)

		c.Next()
	}
}

// GetAPIKeyID gets the authenticated API key's ID from context
func GetAPIKeyID(c *gin.Context) (uuid.UUID, bool) {
	id, exists := c.Get(APIKeyIDKey)
	if !exists {
		return uuid.Nil, false
	}
	return id.(uuid.UUID), true
}

// RequirePermission requires the authenticated API key to carry the given
// permission. Keys with no permission list are unrestricted.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, exists := c.Get(APIKeyPermissionsKey)
		if !exists {
			response.AbortForbidden(c, "Insufficient permissions")
			return
		}

		list := perms.([]string)
		if len(list) == 0 {
			c.Next()
			return
		}
		for _, p := range list {
			if p == permission || p == "*" {
				c.Next()
				return
			}
		}

		response.AbortForbidden(c, "Insufficient permissions")
	}
}

// ipAllowed matches the client address against allowlist entries, which may
// be CIDR networks or bare IPs.
func ipAllowed(clientIP string, allowlist []string) bool {
	ip := net.ParseIP(clientIP)
	for _, entry := range allowlist {
		if _, network, err := net.ParseCIDR(entry); err == nil {
			if ip != nil && network.Contains(ip) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil {
			if ip != nil && allowed.Equal(ip) {
				return true
			}
			continue
		}
		if entry == clientIP {
			return true
		}
	}
	return false
}
