package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits credentials and session state.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"full_name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Phone       *string    `json:"phone,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Role        enums.Role `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	ID           uuid.UUID
	FullName     string
	Username     string
	Email        string
	Phone        *string
	PasswordHash string
	Role         enums.Role
	AvatarURL    *string
	AvatarObject *string
}

// UpdateProfileInput carries optional profile changes; nil fields are left alone.
type UpdateProfileInput struct {
	FullName *string
	Username *string
	Phone    *string
}

// ListQuery filters the admin user listing.
type ListQuery struct {
	Search string
	Role   *enums.Role
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		FullName:    u.FullName,
		Username:    u.Username,
		Email:       u.Email,
		Phone:       u.Phone,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.RoleUser
	}
	return &models.User{
		ID:           c.ID,
		FullName:     strings.TrimSpace(c.FullName),
		Username:     NormalizeIdentifier(c.Username),
		Email:        NormalizeIdentifier(c.Email),
		Phone:        c.Phone,
		PasswordHash: c.PasswordHash,
		Role:         role,
		AvatarURL:    c.AvatarURL,
		AvatarObject: c.AvatarObject,
	}
}

// NormalizeIdentifier lowercases and trims emails and usernames.
func NormalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// IsEmail is a cheap classifier used to route identifiers and OTP contacts.
func IsEmail(value string) bool {
	return strings.Contains(value, "@")
}
