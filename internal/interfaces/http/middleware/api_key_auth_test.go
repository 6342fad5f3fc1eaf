package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antevus.backend/internal/domain/entities"
	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/interfaces/http/middleware"
	"antevus.backend/pkg/redis"
)

func validKey() *entities.KeyValidation {
	return &entities.KeyValidation{
		Valid: true,
		Key: &entities.ApiKey{
			ID:     mustUUID("11111111-1111-1111-1111-111111111111"),
			UserID: mustUUID("22222222-2222-2222-2222-222222222222"),
		},
	}
}

func apiKeyRouter(keys middleware.KeyValidator, limiter *redis.RateLimiter) *gin.Engine {
	r := gin.New()
	r.POST("/v1/data", middleware.APIKeyAuthMiddleware(keys, limiter), func(c *gin.Context) {
		userID, _ := middleware.GetUserID(c)
		keyID, _ := middleware.GetAPIKeyID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID, "apiKeyId": keyID})
	})
	return r
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	rec := perform(apiKeyRouter(&stubKeyValidator{validation: validKey()}, nil), "POST", "/v1/data", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	keys := &stubKeyValidator{validation: &entities.KeyValidation{Valid: false, Reason: entities.ReasonRevoked}}
	rec := perform(apiKeyRouter(keys, nil), "POST", "/v1/data", map[string]string{
		"X-API-Key": "ak_test_deadbeef",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// The reason stays out of the response body.
	assert.NotContains(t, rec.Body.String(), "Revoked")
	assert.Equal(t, 0, keys.usageCount())
}

func TestAPIKeyAuth_StorageError(t *testing.T) {
	keys := &stubKeyValidator{err: domainerrors.ErrStorageUnavailable}
	rec := perform(apiKeyRouter(keys, nil), "POST", "/v1/data", map[string]string{
		"X-API-Key": "ak_test_deadbeef",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	keys := &stubKeyValidator{validation: validKey()}
	rec := perform(apiKeyRouter(keys, nil), "POST", "/v1/data", map[string]string{
		"X-API-Key": "ak_test_deadbeef",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "22222222-2222-2222-2222-222222222222")
	assert.Equal(t, 1, keys.usageCount())
}

func TestAPIKeyAuth_IPAllowlist(t *testing.T) {
	validation := validKey()
	validation.Key.IPAllowlist = []string{"10.0.0.1"}
	keys := &stubKeyValidator{validation: validation}

	// httptest requests come from 192.0.2.1.
	rec := perform(apiKeyRouter(keys, nil), "POST", "/v1/data", map[string]string{
		"X-API-Key": "ak_test_deadbeef",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	validation.Key.IPAllowlist = []string{"192.0.2.1"}
	rec = perform(apiKeyRouter(keys, nil), "POST", "/v1/data", map[string]string{
		"X-API-Key": "ak_test_deadbeef",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_IPAllowlistCIDR(t *testing.T) {
	validation := validKey()
	keys := &stubKeyValidator{validation: validation}
	headers := map[string]string{"X-API-Key": "ak_test_deadbeef"}

	// httptest requests come from 192.0.2.1, inside 192.0.2.0/24.
	validation.Key.IPAllowlist = []string{"192.0.2.0/24"}
	rec := perform(apiKeyRouter(keys, nil), "POST", "/v1/data", headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	validation.Key.IPAllowlist = []string{"10.0.0.0/8"}
	rec = perform(apiKeyRouter(keys, nil), "POST", "/v1/data", headers)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// CIDR networks and bare IPs mix in one list.
	validation.Key.IPAllowlist = []string{"10.0.0.0/8", "192.0.2.1"}
	rec = perform(apiKeyRouter(keys, nil), "POST", "/v1/data", headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Malformed entries never match, and never block later entries.
	validation.Key.IPAllowlist = []string{"not-an-ip", "192.0.2.0/24"}
	rec = perform(apiKeyRouter(keys, nil), "POST", "/v1/data", headers)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_RateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { redis.SetClient(nil) })

	validation := validKey()
	validation.Key.RateLimit = 2
	keys := &stubKeyValidator{validation: validation}
	r := apiKeyRouter(keys, redis.NewRateLimiter(time.Minute))

	headers := map[string]string{"X-API-Key": "ak_test_deadbeef"}
	assert.Equal(t, http.StatusOK, perform(r, "POST", "/v1/data", headers).Code)
	assert.Equal(t, http.StatusOK, perform(r, "POST", "/v1/data", headers).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, "POST", "/v1/data", headers).Code)
}

func TestRequirePermission(t *testing.T) {
	validation := validKey()
	validation.Key.Permissions = []string{"data:read"}
	keys := &stubKeyValidator{validation: validation}

	r := gin.New()
	auth := middleware.APIKeyAuthMiddleware(keys, nil)
	r.POST("/read", auth, middleware.RequirePermission("data:read"), okHandler)
	r.POST("/write", auth, middleware.RequirePermission("data:write"), okHandler)

	headers := map[string]string{"X-API-Key": "ak_test_deadbeef"}
	assert.Equal(t, http.StatusOK, perform(r, "POST", "/read", headers).Code)
	assert.Equal(t, http.StatusForbidden, perform(r, "POST", "/write", headers).Code)
}

func TestRequirePermission_EmptyListIsUnrestricted(t *testing.T) {
	keys := &stubKeyValidator{validation: validKey()}

	r := gin.New()
	r.POST("/anything", middleware.APIKeyAuthMiddleware(keys, nil), middleware.RequirePermission("data:write"), okHandler)

	rec := perform(r, "POST", "/anything", map[string]string{"X-API-Key": "ak_test_deadbeef"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
