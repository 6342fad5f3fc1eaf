package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"antevus.backend/internal/domain/entities"
	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/infrastructure/models"
)

// ApiKeyRepository implements api key storage on GORM
type ApiKeyRepository struct {
	db *gorm.DB
}

// NewApiKeyRepository creates a new api key repository
func NewApiKeyRepository(db *gorm.DB) *ApiKeyRepository {
	return &ApiKeyRepository{db: db}
}

// CreateWithinLimit counts the user's active keys and inserts the new one in a
// single transaction so concurrent issuances cannot both pass the count check.
func (r *ApiKeyRepository) CreateWithinLimit(ctx context.Context, apiKey *entities.ApiKey, maxActive int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ApiKey{}).
			Where("user_id = ? AND is_active = ?", apiKey.UserID, true).
			Count(&count).Error; err != nil {
			return storageErr(err)
		}
		if count >= int64(maxActive) {
			return domainerrors.ErrLimitExceeded
		}

		m, err := toModel(apiKey)
		if err != nil {
			return err
		}
		if err := tx.Create(m).Error; err != nil {
			return storageErr(err)
		}
		apiKey.ID = m.ID
		return nil
	})
}

// FindByKeyHash gets a key by its hash
func (r *ApiKeyRepository) FindByKeyHash(ctx context.Context, keyHash string) (*entities.ApiKey, error) {
	var m models.ApiKey
	if err := r.db.WithContext(ctx).Where("key_hash = ?", keyHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return toEntity(&m)
}

// FindByID gets a key by ID
func (r *ApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	var m models.ApiKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, storageErr(err)
	}
	return toEntity(&m)
}

// FindByUserID lists a user's keys, newest first
func (r *ApiKeyRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	var ms []models.ApiKey
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, storageErr(err)
	}

	keys := make([]*entities.ApiKey, 0, len(ms))
	for i := range ms {
		e, err := toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		keys = append(keys, e)
	}
	return keys, nil
}

// RecordUsage bumps the usage counter and stamps last use
func (r *ApiKeyRepository) RecordUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.ApiKey{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": usedAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// Revoke deactivates the key if owned by userID. Reports whether a row changed.
func (r *ApiKeyRepository) Revoke(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ApiKey{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, storageErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteExpired removes keys whose expiry passed before the given time
func (r *ApiKeyRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(&models.ApiKey{})
	if res.Error != nil {
		return 0, storageErr(res.Error)
	}
	return res.RowsAffected, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", domainerrors.ErrStorageUnavailable, err)
}

func toModel(e *entities.ApiKey) (*models.ApiKey, error) {
	perms, err := json.Marshal(e.Permissions)
	if err != nil {
		return nil, err
	}
	allowlist, err := json.Marshal(e.IPAllowlist)
	if err != nil {
		return nil, err
	}

	m := &models.ApiKey{
		ID:          e.ID,
		UserID:      e.UserID,
		Name:        e.Name,
		KeyPrefix:   e.KeyPrefix,
		KeyHash:     e.KeyHash,
		Permissions: string(perms),
		IPAllowlist: string(allowlist),
		RateLimit:   e.RateLimit,
		IsActive:    e.IsActive,
		UsageCount:  e.UsageCount,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.LastUsedAt = null.TimeFromPtr(e.LastUsedAt)
	m.ExpiresAt = null.TimeFromPtr(e.ExpiresAt)
	return m, nil
}

func toEntity(m *models.ApiKey) (*entities.ApiKey, error) {
	var perms []string
	if m.Permissions != "" {
		if err := json.Unmarshal([]byte(m.Permissions), &perms); err != nil {
			return nil, err
		}
	}
	var allowlist []string
	if m.IPAllowlist != "" {
		if err := json.Unmarshal([]byte(m.IPAllowlist), &allowlist); err != nil {
			return nil, err
		}
	}

	return &entities.ApiKey{
		ID:          m.ID,
		UserID:      m.UserID,
		Name:        m.Name,
		KeyPrefix:   m.KeyPrefix,
		KeyHash:     m.KeyHash,
		Permissions: perms,
		IPAllowlist: allowlist,
		RateLimit:   m.RateLimit,
		IsActive:    m.IsActive,
		UsageCount:  m.UsageCount,
		LastUsedAt:  m.LastUsedAt.Ptr(),
		ExpiresAt:   m.ExpiresAt.Ptr(),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}
