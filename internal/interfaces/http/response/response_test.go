package response_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/interfaces/http/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/", nil)
	fn(c)
	return rec
}

func TestSuccess(t *testing.T) {
	rec := record(func(c *gin.Context) {
		response.Success(c, http.StatusCreated, gin.H{"id": "abc"})
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "abc")
}

func TestError_AppError(t *testing.T) {
	rec := record(func(c *gin.Context) {
		response.Error(c, domainerrors.NotFound("API key not found"))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), domainerrors.CodeNotFound)
	assert.Contains(t, rec.Body.String(), "API key not found")
}

func TestError_WrappedAppError(t *testing.T) {
	wrapped := &wrapError{inner: domainerrors.LimitExceeded("too many keys")}
	rec := record(func(c *gin.Context) {
		response.Error(c, wrapped)
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), domainerrors.CodeLimitExceeded)
}

func TestError_PlainErrorBecomesInternal(t *testing.T) {
	rec := record(func(c *gin.Context) {
		response.Error(c, errors.New("pq: connection refused"))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal details stay out of the body.
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAbortHelpers(t *testing.T) {
	rec := record(func(c *gin.Context) {
		response.AbortUnauthorized(c, "no token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = record(func(c *gin.Context) {
		response.AbortForbidden(c, "not yours")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type wrapError struct {
	inner error
}

func (w *wrapError) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrapError) Unwrap() error { return w.inner }
