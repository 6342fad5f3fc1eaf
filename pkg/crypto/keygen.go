package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// KeyByteLength is the number of random bytes in a generated key (256 bits)
	KeyByteLength = 32
	// DisplayPrefixDigestLen is how many digest characters the display prefix keeps
	DisplayPrefixDigestLen = 8
)

var randomRead = rand.Read

// GeneratedKey is the one-time result of key generation. Plaintext is returned
// exactly once and must never be persisted; only Hash and DisplayPrefix are stored.
type GeneratedKey struct {
	Plaintext     string
	Hash          string
	DisplayPrefix string
}

// GenerateAPIKey creates a new bearer credential with the given environment tag
// (e.g. "live" or "test"). The key text is "ak_<env>_<64 hex chars>".
func GenerateAPIKey(envTag string) (*GeneratedKey, error) {
	raw := make([]byte, KeyByteLength)
	if _, err := randomRead(raw); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	plaintext := KeyPrefix(envTag) + hex.EncodeToString(raw)
	hash := HashKey(plaintext)

	return &GeneratedKey{
		Plaintext:     plaintext,
		Hash:          hash,
		DisplayPrefix: KeyPrefix(envTag) + hash[:DisplayPrefixDigestLen],
	}, nil
}

// KeyPrefix returns the textual prefix for keys in the given environment
func KeyPrefix(envTag string) string {
	return "ak_" + envTag + "_"
}

// HashKey computes the SHA-256 digest of a candidate key. Stored hashes are
// compared against this digest; plaintext keys are never compared directly.
func HashKey(candidate string) string {
	sum := sha256.Sum256([]byte(candidate))
	return hex.EncodeToString(sum[:])
}

// GenerateRandomToken generates a random token of the given byte length,
// hex encoded.
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := randomRead(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
