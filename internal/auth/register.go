package auth

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/google/uuid"
)

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := users.NormalizeIdentifier(req.Email)
	username := users.NormalizeIdentifier(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || username == "" || fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name, username and email are required")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	emailTaken, usernameTaken, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing user")
	}
	if emailTaken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	if usernameTaken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	}

	if s.requireOTP {
		if strings.TrimSpace(req.OTP) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "otp is required")
		}
		if err := s.otp.Verify(ctx, email, enums.OTPPurposeRegister, req.OTP); err != nil {
			return nil, err
		}
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	userID := uuid.New()
	var avatar *dbtypes.Image
	if req.Avatar != nil {
		if s.images == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "image uploads unavailable")
		}
		avatar, err = s.images.Upload(ctx, media.KindAvatar, userID, *req.Avatar)
		if err != nil {
			return nil, err
		}
	}

	dto := users.CreateUserDTO{
		ID:           userID,
		FullName:     fullName,
		Username:     username,
		Email:        email,
		Phone:        trimmedOrNil(req.Phone),
		PasswordHash: passwordHash,
		Role:         enums.RoleUser,
	}
	if avatar != nil {
		dto.AvatarURL = &avatar.URL
		dto.AvatarObject = &avatar.Object
	}

	user, err := s.users.Create(ctx, dto)
	if err != nil {
		if avatar != nil {
			_ = s.images.Delete(ctx, avatar.Object)
		}
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		if db.IsUniqueViolation(err, "username") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.registered")
	}
	return s.signIn(ctx, user)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
