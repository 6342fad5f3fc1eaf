package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"antevus.backend/internal/domain/entities"
)

// ApiKeyRepository is the backing store contract for the credential registry.
// Implementations must make CreateWithinLimit atomic: the active-key count
// check and the insert happen as one unit, so concurrent issuances cannot
// both pass the check and exceed the cap. A single-process in-memory store
// is sufficient for development; any transactional store can substitute
// without changing these operations.
type ApiKeyRepository interface {
	// CreateWithinLimit inserts apiKey unless the owning user already holds
	// maxActive active keys, in which case it returns ErrLimitExceeded.
	CreateWithinLimit(ctx context.Context, apiKey *entities.ApiKey, maxActive int) error

	FindByKeyHash(ctx context.Context, keyHash string) (*entities.ApiKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error)

	// FindByUserID returns the user's keys ordered by creation time, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error)

	// RecordUsage increments the usage counter and stamps last use.
	RecordUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error

	// Revoke deactivates the key if it belongs to userID, reporting whether a
	// row changed. Idempotent: revoking an already revoked key reports false.
	Revoke(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error)

	// DeleteExpired removes keys whose expiry passed before the given time,
	// returning how many were deleted.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
