package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"antevus.backend/internal/domain/entities"
	domainerrors "antevus.backend/internal/domain/errors"
)

type MockApiKeyRepository struct {
	mock.Mock
}

func (m *MockApiKeyRepository) CreateWithinLimit(ctx context.Context, apiKey *entities.ApiKey, maxActive int) error {
	args := m.Called(ctx, apiKey, maxActive)
	return args.Error(0)
}

func (m *MockApiKeyRepository) FindByKeyHash(ctx context.Context, keyHash string) (*entities.ApiKey, error) {
	args := m.Called(ctx, keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ApiKey), args.Error(1)
}

func (m *MockApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ApiKey), args.Error(1)
}

func (m *MockApiKeyRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ApiKey), args.Error(1)
}

func (m *MockApiKeyRepository) RecordUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	args := m.Called(ctx, id, usedAt)
	return args.Error(0)
}

func (m *MockApiKeyRepository) Revoke(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockApiKeyRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// fakeApiKeyRepository is an in-memory store whose CreateWithinLimit leaves a
// deliberate gap between the count check and the insert. It exposes the race
// the registry's issuance serialization must close.
type fakeApiKeyRepository struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*entities.ApiKey
}

func newFakeApiKeyRepository() *fakeApiKeyRepository {
	return &fakeApiKeyRepository{keys: make(map[uuid.UUID]*entities.ApiKey)}
}

func (f *fakeApiKeyRepository) CreateWithinLimit(_ context.Context, apiKey *entities.ApiKey, maxActive int) error {
	f.mu.Lock()
	count := 0
	for _, k := range f.keys {
		if k.UserID == apiKey.UserID && k.IsActive {
			count++
		}
	}
	f.mu.Unlock()

	// Check-then-act gap: without external serialization, two callers can
	// both observe count == maxActive-1 here.
	time.Sleep(time.Millisecond)

	if count >= maxActive {
		return domainerrors.ErrLimitExceeded
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *apiKey
	cp.ID = uuid.New()
	f.keys[cp.ID] = &cp
	apiKey.ID = cp.ID
	return nil
}

func (f *fakeApiKeyRepository) FindByKeyHash(_ context.Context, keyHash string) (*entities.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.KeyHash == keyHash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (f *fakeApiKeyRepository) FindByID(_ context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.keys[id]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (f *fakeApiKeyRepository) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.ApiKey
	for _, k := range f.keys {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeApiKeyRepository) RecordUsage(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	k.UsageCount++
	k.LastUsedAt = &usedAt
	return nil
}

func (f *fakeApiKeyRepository) Revoke(_ context.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[id]
	if !ok || k.UserID != userID || !k.IsActive {
		return false, nil
	}
	k.IsActive = false
	return true, nil
}

func (f *fakeApiKeyRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, k := range f.keys {
		if k.ExpiresAt != nil && k.ExpiresAt.Before(before) {
			delete(f.keys, id)
			deleted++
		}
	}
	return deleted, nil
}
