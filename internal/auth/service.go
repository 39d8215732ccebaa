package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/internal/otp"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	// PasswordLength is the exact password length accepted on register and reset.
	PasswordLength = 6
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	LoginWithOTP(ctx context.Context, req OTPLoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ForgotPassword(ctx context.Context, contact string) (*otp.SendResult, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) (*AuthResponse, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByContact(ctx context.Context, contact string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, bool, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Issue(ctx context.Context, userID uuid.UUID) (*session.Issued, error)
	Rotate(ctx context.Context, refreshToken string) (uuid.UUID, *session.Issued, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

type otpService interface {
	Send(ctx context.Context, contact string, purpose enums.OTPPurpose) (*otp.SendResult, error)
	Verify(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error
}

type imageStore interface {
	Upload(ctx context.Context, kind media.Kind, ownerID uuid.UUID, file media.File) (*dbtypes.Image, error)
	Delete(ctx context.Context, objects ...string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	OTP            otpService
	Images         imageStore
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	OTPConfig      config.OTPConfig
	Logger         *logger.Logger
}

type service struct {
	users       userRepository
	session     sessionManager
	otp         otpService
	images      imageStore
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	requireOTP  bool
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.OTP == nil {
		return nil, fmt.Errorf("otp service is required")
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		otp:         params.OTP,
		images:      params.Images,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		requireOTP:  params.OTPConfig.RequireOnRegister,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier is required")
	}
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return s.signIn(ctx, user)
}

func (s *service) LoginWithOTP(ctx context.Context, req OTPLoginRequest) (*AuthResponse, error) {
	contact := otp.NormalizeContact(req.Contact)
	if err := s.otp.Verify(ctx, contact, enums.OTPPurposeLogin, req.Code); err != nil {
		return nil, err
	}
	user, err := s.users.FindByContact(ctx, contact)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return s.signIn(ctx, user)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token missing")
	}
	userID, issued, err := s.session.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return s.respond(user, issued)
}

func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.session.Revoke(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

// signIn records the login and starts a new session, replacing any previous one.
func (s *service) signIn(ctx context.Context, user *models.User) (*AuthResponse, error) {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	issued, err := s.session.Issue(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return s.respond(user, issued)
}

func (s *service) respond(user *models.User, issued *session.Issued) (*AuthResponse, error) {
	now := s.now().UTC()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: issued.SessionID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResponse{
		Tokens: TokenPair{
			AccessToken:           accessToken,
			AccessTokenExpiresAt:  now.Add(s.jwtCfg.AccessTokenTTL()),
			RefreshToken:          issued.RefreshToken,
			RefreshTokenExpiresAt: issued.ExpiresAt,
		},
		User: users.FromModel(user),
	}, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) != PasswordLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "password must be exactly %d characters", PasswordLength)
	}
	return nil
}
