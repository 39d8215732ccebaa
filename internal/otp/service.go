package otp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"gorm.io/gorm"
)

type contactLookup interface {
	FindByContact(ctx context.Context, contact string) (*models.User, error)
}

// SendResult tells the caller when the issued code stops working.
type SendResult struct {
	Contact   string    `json:"contact"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues and verifies one-time codes.
type Service interface {
	Send(ctx context.Context, contact string, purpose enums.OTPPurpose) (*SendResult, error)
	Verify(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error
	Check(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type ServiceParams struct {
	Repo      *Repository
	Users     contactLookup
	Transport Transport
	Config    config.OTPConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo        *Repository
	users       contactLookup
	transport   Transport
	ttl         time.Duration
	maxAttempts int
	bcryptCost  int
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "otp repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user lookup required")
	}
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "otp transport required")
	}
	if params.Config.TTL <= 0 || params.Config.MaxAttempts <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "otp ttl and max attempts must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		users:       params.Users,
		transport:   params.Transport,
		ttl:         params.Config.TTL,
		maxAttempts: params.Config.MaxAttempts,
		bcryptCost:  params.Config.BcryptCost,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// NormalizeContact lowercases emails and trims phone numbers.
func NormalizeContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if users.IsEmail(contact) {
		return strings.ToLower(contact)
	}
	return contact
}

func (s *service) Send(ctx context.Context, contact string, purpose enums.OTPPurpose) (*SendResult, error) {
	contact = NormalizeContact(contact)
	if contact == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact is required")
	}
	if !purpose.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid otp purpose %q", purpose)
	}
	if err := s.checkContact(ctx, contact, purpose); err != nil {
		return nil, err
	}

	code, err := security.GenerateNumericCode(security.OTPDigits)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	hash, err := security.HashOTP(code, s.bcryptCost)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash otp")
	}

	expiresAt := s.now().Add(s.ttl).UTC()
	record := &models.OTPCode{
		Contact:     contact,
		Purpose:     purpose,
		CodeHash:    hash,
		ExpiresAt:   expiresAt,
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store otp")
	}

	if err := s.transport.Deliver(ctx, contact, purpose, code); err != nil {
		if delErr := s.repo.DeleteFor(ctx, contact, purpose); delErr != nil && s.logg != nil {
			s.logg.Error(ctx, "otp.cleanup_failed", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver otp")
	}

	return &SendResult{Contact: contact, Purpose: purpose.String(), ExpiresAt: expiresAt}, nil
}

func (s *service) checkContact(ctx context.Context, contact string, purpose enums.OTPPurpose) error {
	_, err := s.users.FindByContact(ctx, contact)
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup contact")
	}
	switch purpose {
	case enums.OTPPurposeRegister:
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "account already exists")
		}
	default:
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
	}
	return nil
}

func (s *service) Verify(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error {
	record, err := s.match(ctx, contact, purpose, code)
	if err != nil {
		return err
	}
	consumed, err := s.repo.Consume(ctx, record.ID, record.CodeHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume otp")
	}
	if !consumed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "otp not found")
	}
	return nil
}

// Check validates a code without consuming it. Failed checks count against
// the attempt limit exactly like Verify.
func (s *service) Check(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) error {
	record, err := s.match(ctx, contact, purpose, code)
	if err != nil {
		return err
	}
	if err := s.repo.ReleaseAttempt(ctx, record.ID, record.CodeHash); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "otp_id", record.ID.String()), "otp.release_failed", err)
	}
	return nil
}

// match reserves an attempt and compares code against the stored hash.
func (s *service) match(ctx context.Context, contact string, purpose enums.OTPPurpose, code string) (*models.OTPCode, error) {
	contact = NormalizeContact(contact)
	record, err := s.repo.Find(ctx, contact, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "otp not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load otp")
	}

	if record.IsExpired(s.now()) {
		s.discard(ctx, record)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "otp expired")
	}
	reserved, err := s.repo.ReserveAttempt(ctx, record.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record otp attempt")
	}
	if !reserved {
		removed, err := s.repo.DeleteExhausted(ctx, record.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete otp")
		}
		if !removed {
			// consumed or replaced since Find
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "otp not found")
		}
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts")
	}

	ok, err := security.VerifyOTP(strings.TrimSpace(code), record.CodeHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compare otp")
	}
	if !ok {
		if _, err := s.repo.DeleteExhausted(ctx, record.ID); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "otp_id", record.ID.String()), "otp.delete_failed", err)
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid otp")
	}
	return record, nil
}

func (s *service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}

func (s *service) discard(ctx context.Context, record *models.OTPCode) {
	if err := s.repo.Delete(ctx, record.ID); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "otp_id", record.ID.String()), "otp.delete_failed", err)
	}
}
