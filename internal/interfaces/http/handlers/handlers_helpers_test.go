package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"antevus.backend/internal/domain/entities"
	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authAs simulates an upstream auth middleware having set the subject.
func authAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func performJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func performRaw(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t interface{ Fatalf(string, ...interface{}) }, rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

// memApiKeyRepo is a plain in-memory ApiKeyRepository for handler tests.
type memApiKeyRepo struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*entities.ApiKey
}

func newMemApiKeyRepo() *memApiKeyRepo {
	return &memApiKeyRepo{keys: make(map[uuid.UUID]*entities.ApiKey)}
}

func (m *memApiKeyRepo) CreateWithinLimit(_ context.Context, apiKey *entities.ApiKey, maxActive int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, k := range m.keys {
		if k.UserID == apiKey.UserID && k.IsActive {
			count++
		}
	}
	if count >= maxActive {
		return domainerrors.ErrLimitExceeded
	}

	cp := *apiKey
	cp.ID = uuid.New()
	m.keys[cp.ID] = &cp
	apiKey.ID = cp.ID
	return nil
}

func (m *memApiKeyRepo) FindByKeyHash(_ context.Context, keyHash string) (*entities.ApiKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.KeyHash == keyHash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (m *memApiKeyRepo) FindByID(_ context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[id]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (m *memApiKeyRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.ApiKey
	for _, k := range m.keys {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memApiKeyRepo) RecordUsage(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	k.UsageCount++
	k.LastUsedAt = &usedAt
	return nil
}

func (m *memApiKeyRepo) Revoke(_ context.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok || k.UserID != userID || !k.IsActive {
		return false, nil
	}
	k.IsActive = false
	return true, nil
}

func (m *memApiKeyRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, k := range m.keys {
		if k.ExpiresAt != nil && k.ExpiresAt.Before(before) {
			delete(m.keys, id)
			deleted++
		}
	}
	return deleted, nil
}
