// Package csrf issues and validates per-subject anti-forgery tokens.
package csrf

import (
	"context"
	"crypto/subtle"
	"time"

	"antevus.backend/pkg/audit"
	"antevus.backend/pkg/crypto"
	"antevus.backend/pkg/store"
)

const (
	// DefaultWindow is how long an issued token stays valid.
	DefaultWindow = time.Hour
	// maxSubjects bounds the token store; far beyond expected concurrent subjects.
	maxSubjects = 10000
	// tokenBytes gives 256 bits of entropy per token.
	tokenBytes = 32
)

// Reason classifies a failed validation.
type Reason string

const (
	ReasonMissing  Reason = "Missing"
	ReasonNotFound Reason = "NotFound"
	ReasonMismatch Reason = "Mismatch"
	ReasonExpired  Reason = "Expired"
)

// Result is the outcome of validating a supplied token.
type Result struct {
	Valid  bool
	Reason Reason
}

var generateToken = crypto.GenerateRandomToken

// Manager holds at most one live token per subject. Issuing a new token
// replaces the prior one; expiry is fixed at issuance and reads do not
// extend it.
type Manager struct {
	tokens *store.Store[string]
	sink   audit.Sink
	now    func() time.Time
}

func NewManager(window time.Duration, sink audit.Sink) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Manager{
		tokens: store.New[string](maxSubjects, window, store.Fixed),
		sink:   sink,
		now:    time.Now,
	}
}

// SetClock replaces the time source (used for testing)
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
	m.tokens.SetClock(now)
}

// Issue generates a fresh token for the subject, replacing any prior token.
func (m *Manager) Issue(subjectID string) (string, error) {
	token, err := generateToken(tokenBytes)
	if err != nil {
		return "", err
	}
	m.tokens.Put(subjectID, token)
	return token, nil
}

// Validate checks the supplied token against the subject's stored token.
// An expired record is deleted as a side effect of the lookup. The comparison
// does not short-circuit on the first differing byte.
func (m *Manager) Validate(ctx context.Context, subjectID, supplied string) Result {
	if supplied == "" {
		return m.fail(ctx, subjectID, ReasonMissing)
	}

	stored, status := m.tokens.Lookup(subjectID)
	switch status {
	case store.Miss:
		return m.fail(ctx, subjectID, ReasonNotFound)
	case store.Expired:
		return m.fail(ctx, subjectID, ReasonExpired)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return m.fail(ctx, subjectID, ReasonMismatch)
	}
	return Result{Valid: true}
}

// Revoke drops the subject's live token, if any.
func (m *Manager) Revoke(subjectID string) bool {
	return m.tokens.Delete(subjectID)
}

func (m *Manager) fail(ctx context.Context, subjectID string, reason Reason) Result {
	m.sink.Emit(ctx, audit.Event{
		Timestamp: m.now(),
		Type:      audit.EventCSRFValidationFailed,
		Subject:   subjectID,
		Success:   false,
		Reason:    string(reason),
	})
	return Result{Valid: false, Reason: reason}
}
