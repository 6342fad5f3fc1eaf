package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"antevus.backend/internal/domain/entities"
	"antevus.backend/internal/interfaces/http/middleware"
	"antevus.backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

func newTestJWT() *jwt.Service {
	return jwt.NewService("test-secret", "antevus", 15*time.Minute, time.Hour)
}

// authAs simulates an upstream auth middleware having set the subject.
func authAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func perform(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type stubKeyValidator struct {
	mu         sync.Mutex
	validation *entities.KeyValidation
	err        error
	usage      []uuid.UUID
}

func (s *stubKeyValidator) ValidateApiKey(_ context.Context, _ string) (*entities.KeyValidation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.validation, nil
}

func (s *stubKeyValidator) RecordUsage(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, id)
}

func (s *stubKeyValidator) usageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.usage)
}
