package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

type ApiKey struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(100);not null"`
	KeyPrefix   string    `gorm:"type:varchar(20);not null"`
	KeyHash     string    `gorm:"type:varchar(64);uniqueIndex;not null"` // SHA256 of key
	Permissions string    `gorm:"type:text;not null"`                    // JSON array
	IPAllowlist string    `gorm:"type:text"`                             // JSON array
	RateLimit   int       `gorm:"not null;default:0"`
	IsActive    bool      `gorm:"default:true;not null"`
	UsageCount  int64     `gorm:"not null;default:0"`
	LastUsedAt  null.Time
	ExpiresAt   null.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ApiKey) TableName() string {
	return "api_keys"
}
