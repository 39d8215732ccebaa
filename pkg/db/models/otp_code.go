package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPCode is the single live code for a (contact, purpose) pair. Only the hash is stored.
type OTPCode struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Contact     string           `gorm:"column:contact;not null;uniqueIndex:idx_otp_codes_contact_purpose"`
	Purpose     enums.OTPPurpose `gorm:"column:purpose;type:text;not null;uniqueIndex:idx_otp_codes_contact_purpose"`
	CodeHash    string           `gorm:"column:code_hash;not null"`
	ExpiresAt   time.Time        `gorm:"column:expires_at;not null;index"`
	Attempts    int              `gorm:"column:attempts;not null;default:0"`
	MaxAttempts int              `gorm:"column:max_attempts;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (OTPCode) TableName() string { return "otp_codes" }

func (o *OTPCode) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// IsExpired reports whether the code is past its expiry at now.
func (o *OTPCode) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
