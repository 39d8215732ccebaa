package models

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email            string     `gorm:"column:email;type:text;not null;uniqueIndex:idx_users_email"`
	Username         string     `gorm:"column:username;type:text;not null;uniqueIndex:idx_users_username"`
	FullName         string     `gorm:"column:full_name;not null"`
	Phone            *string    `gorm:"column:phone"`
	AvatarURL        *string    `gorm:"column:avatar_url"`
	AvatarObject     *string    `gorm:"column:avatar_object"`
	PasswordHash     string     `gorm:"column:password_hash;not null"`
	Role             enums.Role `gorm:"column:role;type:text;not null;default:user"`
	RefreshTokenHash *string    `gorm:"column:refresh_token_hash"`
	SessionID        *string    `gorm:"column:session_id"`
	SessionExpiresAt *time.Time `gorm:"column:session_expires_at"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = enums.RoleUser
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == enums.RoleAdmin
}
