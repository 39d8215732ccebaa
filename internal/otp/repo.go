package otp

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists OTP codes.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert stores code as the single live code for its (contact, purpose), resetting attempts.
func (r *Repository) Upsert(ctx context.Context, code *models.OTPCode) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contact"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "attempts", "max_attempts", "updated_at"}),
	}).Create(code).Error
}

// Find returns the live code for contact and purpose.
func (r *Repository) Find(ctx context.Context, contact string, purpose enums.OTPPurpose) (*models.OTPCode, error) {
	var code models.OTPCode
	err := r.db.WithContext(ctx).
		Where("contact = ? AND purpose = ?", contact, purpose).
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// ReserveAttempt counts one verification attempt. It reports false once the
// code is gone or its attempts are used up, so concurrent guesses cannot
// exceed max_attempts.
func (r *Repository) ReserveAttempt(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("id = ? AND attempts < max_attempts", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Consume deletes the code only while it still carries hash. Exactly one
// caller observes true for a given code.
func (r *Repository) Consume(ctx context.Context, id uuid.UUID, hash string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND code_hash = ?", id, hash).
		Delete(&models.OTPCode{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseAttempt gives back an attempt reserved by a matching guess.
func (r *Repository) ReleaseAttempt(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("id = ? AND code_hash = ? AND attempts > 0", id, hash).
		UpdateColumn("attempts", gorm.Expr("attempts - 1")).Error
}

// DeleteExhausted removes the code if its attempts are used up and reports
// whether a row was removed.
func (r *Repository) DeleteExhausted(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND attempts >= max_attempts", id).
		Delete(&models.OTPCode{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a code by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.OTPCode{}, "id = ?", id).Error
}

// DeleteFor removes the code for contact and purpose, if any.
func (r *Repository) DeleteFor(ctx context.Context, contact string, purpose enums.OTPPurpose) error {
	return r.db.WithContext(ctx).
		Where("contact = ? AND purpose = ?", contact, purpose).
		Delete(&models.OTPCode{}).Error
}

// DeleteExpired purges codes whose expiry is at or before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.OTPCode{})
	return res.RowsAffected, res.Error
}
