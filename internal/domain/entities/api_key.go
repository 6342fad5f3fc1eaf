package entities

import (
	"time"

	"github.com/google/uuid"
)

// MaxActiveKeysPerUser is the cap on simultaneously active keys per subject,
// enforced atomically at creation time.
const MaxActiveKeysPerUser = 10

// ApiKey represents an API key for a user. KeyHash is the SHA-256 digest of
// the full key text; the plaintext is never stored. KeyPrefix is the truncated,
// safe-to-display form.
type ApiKey struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"keyPrefix"`
	KeyHash     string     `json:"-"`
	Permissions []string   `json:"permissions"`
	IPAllowlist []string   `json:"ipAllowlist,omitempty"`
	RateLimit   int        `json:"rateLimit"`
	IsActive    bool       `json:"isActive"`
	UsageCount  int64      `json:"usageCount"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Expired reports whether the key's expiry has passed at the given time.
// A nil ExpiresAt means the key never expires.
func (k *ApiKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

type CreateApiKeyInput struct {
	Name        string   `json:"name" binding:"required"`
	Permissions []string `json:"permissions"`
	IPAllowlist []string `json:"ipAllowlist"`
	RateLimit   int      `json:"rateLimit"`
	ExpiresIn   string   `json:"expiresIn"`
}

type CreateApiKeyResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ApiKey    string     `json:"apiKey"` // Shown once, never persisted
	KeyPrefix string     `json:"keyPrefix"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ValidationReason classifies a failed key validation.
type ValidationReason string

const (
	ReasonNotFound ValidationReason = "NotFound"
	ReasonRevoked  ValidationReason = "Revoked"
	ReasonExpired  ValidationReason = "Expired"
)

// KeyValidation is the tri-state outcome of validating a presented key.
type KeyValidation struct {
	Valid  bool
	Key    *ApiKey
	Reason ValidationReason
}

// DefaultExpiryPolicy is applied when an unrecognized policy is requested.
const DefaultExpiryPolicy = "30d"

// ExpiryForPolicy resolves a TTL policy name to an absolute expiry.
// Recognized policies: "never", "7d", "30d", "90d", "1y". Anything else
// falls back to 30 days. A nil result means the key never expires.
func ExpiryForPolicy(policy string, now time.Time) *time.Time {
	var d time.Duration
	switch policy {
	case "never":
		return nil
	case "7d":
		d = 7 * 24 * time.Hour
	case "90d":
		d = 90 * 24 * time.Hour
	case "1y":
		d = 365 * 24 * time.Hour
	case "30d":
		d = 30 * 24 * time.Hour
	default:
		d = 30 * 24 * time.Hour
	}
	t := now.Add(d)
	return &t
}
