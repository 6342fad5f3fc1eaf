package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"antevus.backend/internal/interfaces/http/response"
	"antevus.backend/internal/security/csrf"
	"antevus.backend/pkg/metrics"
)

// CSRFHeader carries the anti-forgery token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// CSRFMiddleware validates the anti-forgery token on state-changing requests.
// It must run after authentication so the subject is known. Safe methods pass
// through untouched.
func CSRFMiddleware(manager *csrf.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if safeMethods[c.Request.Method] {
			c.Next()
			return
		}

		// API key callers are not browsers; forgery protection does not apply.
		if _, viaAPIKey := c.Get(APIKeyIDKey); viaAPIKey {
			c.Next()
			return
		}

		userID, ok := GetUserID(c)
		if !ok {
			response.AbortUnauthorized(c, "User not authenticated")
			return
		}

		result := manager.Validate(c.Request.Context(), userID.String(), c.GetHeader(CSRFHeader))
		if !result.Valid {
			metrics.ObserveCSRF(string(result.Reason))
			response.AbortForbidden(c, "CSRF token validation failed")
			return
		}
		metrics.ObserveCSRF("")

		c.Next()
	}
}
