package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations. It also backs the
// session store: the user row holds the single live refresh session.
type Repository struct {
	db *gorm.DB
}

var _ session.Store = (*Repository)(nil)

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeIdentifier(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier matches either the email or the username.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	ident := NormalizeIdentifier(identifier)
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ? OR username = ?", ident, ident).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByContact resolves an OTP contact: emails by email, anything else by phone.
func (r *Repository) FindByContact(ctx context.Context, contact string) (*models.User, error) {
	if IsEmail(contact) {
		return r.FindByEmail(ctx, contact)
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where("phone = ?", strings.TrimSpace(contact)).Order("created_at ASC").First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmailOrUsername reports which of the two identifiers are already taken.
func (r *Repository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	var rows []models.User
	err = r.db.WithContext(ctx).
		Select("email", "username").
		Where("email = ? OR username = ?", NormalizeIdentifier(email), NormalizeIdentifier(username)).
		Find(&rows).Error
	if err != nil {
		return false, false, err
	}
	for _, row := range rows {
		if row.Email == NormalizeIdentifier(email) {
			emailTaken = true
		}
		if row.Username == NormalizeIdentifier(username) {
			usernameTaken = true
		}
	}
	return emailTaken, usernameTaken, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdateFields applies a partial update and returns gorm.ErrRecordNotFound when no row matched.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.UpdateFields(ctx, id, map[string]any{"password_hash": hash})
}

// List returns a page of users ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context, q ListQuery, page pagination.Page) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("email LIKE ? OR username LIKE ? OR LOWER(full_name) LIKE ?", like, like, like)
	}
	if q.Role != nil {
		query = query.Where("role = ?", *q.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page = pagination.NormalizePage(page)
	var rows []models.User
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateRole changes the user's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) error {
	return r.UpdateFields(ctx, id, map[string]any{"role": role})
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error
	return total, err
}

func (r *Repository) SaveSession(ctx context.Context, userID uuid.UUID, rec session.Record) error {
	return r.UpdateFields(ctx, userID, sessionColumns(&rec))
}

func (r *Repository) ReplaceSession(ctx context.Context, userID uuid.UUID, oldHash string, rec session.Record) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND refresh_token_hash = ?", userID, oldHash).
		Updates(sessionColumns(&rec))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) FindByRefreshHash(ctx context.Context, hash string) (uuid.UUID, *session.Record, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("refresh_token_hash = ?", hash).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil, session.ErrNotFound
		}
		return uuid.Nil, nil, err
	}
	rec := recordFromUser(&user)
	if rec == nil {
		return uuid.Nil, nil, session.ErrNotFound
	}
	return user.ID, rec, nil
}

func (r *Repository) LoadSession(ctx context.Context, userID uuid.UUID) (*session.Record, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("id", "refresh_token_hash", "session_id", "session_expires_at").
		First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	rec := recordFromUser(&user)
	if rec == nil {
		return nil, session.ErrNotFound
	}
	return rec, nil
}

func (r *Repository) ClearSession(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(sessionColumns(nil)).Error
}

func sessionColumns(rec *session.Record) map[string]any {
	if rec == nil {
		return map[string]any{"refresh_token_hash": nil, "session_id": nil, "session_expires_at": nil}
	}
	return map[string]any{
		"refresh_token_hash": rec.RefreshTokenHash,
		"session_id":         rec.SessionID,
		"session_expires_at": rec.ExpiresAt,
	}
}

func recordFromUser(u *models.User) *session.Record {
	if u.RefreshTokenHash == nil || u.SessionID == nil || u.SessionExpiresAt == nil {
		return nil
	}
	return &session.Record{
		SessionID:        *u.SessionID,
		RefreshTokenHash: *u.RefreshTokenHash,
		ExpiresAt:        *u.SessionExpiresAt,
	}
}
