package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"antevus.backend/internal/domain/entities"
	domainerrors "antevus.backend/internal/domain/errors"
	"antevus.backend/internal/domain/repositories"
	"antevus.backend/pkg/audit"
	"antevus.backend/pkg/crypto"
	"antevus.backend/pkg/logger"
)

var generateAPIKey = crypto.GenerateAPIKey

// ApiKeyUsecase is the credential registry: issuance, validation, usage
// recording, revocation and expiry sweeps for bearer API keys.
type ApiKeyUsecase struct {
	apiKeyRepo repositories.ApiKeyRepository
	auditSink  audit.Sink
	envTag     string
	maxActive  int
	now        func() time.Time

	// issueMu serializes issuance so the count check and insert cannot
	// interleave between concurrent callers. The repository additionally
	// runs both in one transaction.
	issueMu sync.Mutex
}

func NewApiKeyUsecase(apiKeyRepo repositories.ApiKeyRepository, auditSink audit.Sink, envTag string) *ApiKeyUsecase {
	if auditSink == nil {
		auditSink = audit.NopSink{}
	}
	return &ApiKeyUsecase{
		apiKeyRepo: apiKeyRepo,
		auditSink:  auditSink,
		envTag:     envTag,
		maxActive:  entities.MaxActiveKeysPerUser,
		now:        time.Now,
	}
}

// SetClock replaces the time source (used for testing)
func (u *ApiKeyUsecase) SetClock(now func() time.Time) {
	u.now = now
}

// CreateApiKey issues a new key for the user. The plaintext is returned exactly
// once in the response and is never persisted. Fails with a LimitExceeded
// outcome when the user already holds the maximum number of active keys.
func (u *ApiKeyUsecase) CreateApiKey(ctx context.Context, userID uuid.UUID, input *entities.CreateApiKeyInput) (*entities.CreateApiKeyResponse, error) {
	generated, err := generateAPIKey(u.envTag)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}

	now := u.now()
	key := &entities.ApiKey{
		UserID:      userID,
		Name:        input.Name,
		KeyPrefix:   generated.DisplayPrefix,
		KeyHash:     generated.Hash,
		Permissions: input.Permissions,
		IPAllowlist: input.IPAllowlist,
		RateLimit:   input.RateLimit,
		IsActive:    true,
		ExpiresAt:   entities.ExpiryForPolicy(input.ExpiresIn, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	u.issueMu.Lock()
	err = u.apiKeyRepo.CreateWithinLimit(ctx, key, u.maxActive)
	u.issueMu.Unlock()
	if err != nil {
		if errors.Is(err, domainerrors.ErrLimitExceeded) {
			return nil, domainerrors.LimitExceeded("active API key limit reached")
		}
		return nil, err
	}

	u.auditSink.Emit(ctx, audit.Event{
		Timestamp: now,
		Type:      audit.EventCredentialIssued,
		Subject:   userID.String(),
		Resource:  key.ID.String(),
		Success:   true,
	})

	return &entities.CreateApiKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		ApiKey:    generated.Plaintext, // Shown once
		KeyPrefix: generated.DisplayPrefix,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}, nil
}

// ValidateApiKey resolves a presented key to its record. A failed validation is
// an ordinary negative outcome, not an error; errors are reserved for the
// backing store being unreachable.
func (u *ApiKeyUsecase) ValidateApiKey(ctx context.Context, candidate string) (*entities.KeyValidation, error) {
	keyHash := crypto.HashKey(candidate)

	key, err := u.apiKeyRepo.FindByKeyHash(ctx, keyHash)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			u.emitValidationFailure(ctx, nil, entities.ReasonNotFound)
			return &entities.KeyValidation{Valid: false, Reason: entities.ReasonNotFound}, nil
		}
		return nil, err
	}

	if !key.IsActive {
		u.emitValidationFailure(ctx, key, entities.ReasonRevoked)
		return &entities.KeyValidation{Valid: false, Reason: entities.ReasonRevoked}, nil
	}

	if key.Expired(u.now()) {
		u.emitValidationFailure(ctx, key, entities.ReasonExpired)
		return &entities.KeyValidation{Valid: false, Reason: entities.ReasonExpired}, nil
	}

	return &entities.KeyValidation{Valid: true, Key: key}, nil
}

// RecordUsage bumps the key's usage counter and last-used timestamp.
// Best effort: a failure here is logged, never propagated, so it cannot
// block the caller's request.
func (u *ApiKeyUsecase) RecordUsage(ctx context.Context, id uuid.UUID) {
	if err := u.apiKeyRepo.RecordUsage(ctx, id, u.now()); err != nil {
		logger.Warn(ctx, "failed to record api key usage",
			zap.String("id", id.String()),
			zap.Error(err),
		)
	}
}

// RevokeApiKey deactivates the key if it belongs to userID. Irreversible and
// idempotent; reports whether a record changed.
func (u *ApiKeyUsecase) RevokeApiKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	changed, err := u.apiKeyRepo.Revoke(ctx, id, userID)
	if err != nil {
		return false, err
	}

	if changed {
		u.auditSink.Emit(ctx, audit.Event{
			Timestamp: u.now(),
			Type:      audit.EventCredentialRevoked,
			Subject:   userID.String(),
			Resource:  id.String(),
			Success:   true,
		})
	}
	return changed, nil
}

// ListApiKeys returns the user's keys, newest first, with hashes omitted.
func (u *ApiKeyUsecase) ListApiKeys(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	keys, err := u.apiKeyRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		k.KeyHash = ""
	}
	return keys, nil
}

// SweepExpired deletes keys whose expiry has passed. Safe to run concurrently
// with issuance and validation.
func (u *ApiKeyUsecase) SweepExpired(ctx context.Context) (int64, error) {
	return u.apiKeyRepo.DeleteExpired(ctx, u.now())
}

func (u *ApiKeyUsecase) emitValidationFailure(ctx context.Context, key *entities.ApiKey, reason entities.ValidationReason) {
	event := audit.Event{
		Timestamp: u.now(),
		Type:      audit.EventCredentialValidationFailed,
		Success:   false,
		Reason:    string(reason),
	}
	if key != nil {
		event.Subject = key.UserID.String()
		event.Resource = key.ID.String()
	}
	u.auditSink.Emit(ctx, event)
}
