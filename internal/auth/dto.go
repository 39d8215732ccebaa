package auth

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/internal/users"
)

// RegisterRequest carries a new account. Avatar is set by the multipart decoder.
type RegisterRequest struct {
	FullName string      `json:"full_name" validate:"required,max=120"`
	Username string      `json:"username" validate:"required,min=3,max=40"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	Phone    *string     `json:"phone,omitempty"`
	OTP      string      `json:"otp,omitempty"`
	Avatar   *media.File `json:"-"`
}

// LoginRequest accepts either an email or a username as the identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// OTPLoginRequest signs in with a code previously sent for purpose "login".
type OTPLoginRequest struct {
	Contact string `json:"contact" validate:"required"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest completes the forgot-password flow.
type ResetPasswordRequest struct {
	Contact     string `json:"contact" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ChangePasswordRequest updates the password of a signed-in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// TokenPair is returned on every successful sign-in or refresh.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// AuthResponse contains the tokens and the signed-in user.
type AuthResponse struct {
	Tokens TokenPair      `json:"tokens"`
	User   *users.UserDTO `json:"user"`
}
