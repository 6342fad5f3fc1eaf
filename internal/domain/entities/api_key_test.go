package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApiKey_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	never := &ApiKey{}
	assert.False(t, never.Expired(now))

	future := now.Add(time.Hour)
	assert.False(t, (&ApiKey{ExpiresAt: &future}).Expired(now))

	past := now.Add(-time.Hour)
	assert.True(t, (&ApiKey{ExpiresAt: &past}).Expired(now))
}

func TestExpiryForPolicy(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, ExpiryForPolicy("never", now))

	tests := []struct {
		policy string
		days   int
	}{
		{"7d", 7},
		{"30d", 30},
		{"90d", 90},
		{"1y", 365},
		{"", 30},
		{"forever", 30},
		{"2h", 30},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			got := ExpiryForPolicy(tt.policy, now)
			require.NotNil(t, got)
			assert.Equal(t, now.Add(time.Duration(tt.days)*24*time.Hour), *got)
		})
	}
}
