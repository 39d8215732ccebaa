package auth

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/internal/otp"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *service) ForgotPassword(ctx context.Context, contact string) (*otp.SendResult, error) {
	return s.otp.Send(ctx, contact, enums.OTPPurposeForgot)
}

// ResetPassword consumes a forgot-password code, stores the new hash and ends any session.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	contact := otp.NormalizeContact(req.Contact)
	if err := s.otp.Verify(ctx, contact, enums.OTPPurposeForgot, req.Code); err != nil {
		return err
	}
	user, err := s.users.FindByContact(ctx, contact)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if err := s.storePassword(ctx, user.ID, req.NewPassword); err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

// ChangePassword replaces the password and starts a fresh session.
func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) (*AuthResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return nil, err
	}
	if err := s.storePassword(ctx, user.ID, req.NewPassword); err != nil {
		return nil, err
	}
	return s.signIn(ctx, user)
}

func (s *service) storePassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}
