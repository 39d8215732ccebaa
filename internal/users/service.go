package users

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type imageStore interface {
	Upload(ctx context.Context, kind media.Kind, ownerID uuid.UUID, file media.File) (*dbtypes.Image, error)
	Delete(ctx context.Context, objects ...string) error
}

// ListResult is a page of users.
type ListResult struct {
	Users []UserDTO           `json:"users"`
	Meta  pagination.PageMeta `json:"meta"`
}

// Service exposes profile and admin user management.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, file media.File) (*UserDTO, error)
	List(ctx context.Context, q ListQuery, page pagination.Page) (*ListResult, error)
	ChangeRole(ctx context.Context, actorID, id uuid.UUID, role enums.Role) (*UserDTO, error)
}

type service struct {
	repo   *Repository
	images imageStore
}

// NewService builds the users service. images may be nil when uploads are disabled.
func NewService(repo *Repository, images imageStore) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &service{repo: repo, images: images}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	fields := map[string]any{}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
		}
		fields["full_name"] = name
	}
	if input.Username != nil {
		username := NormalizeIdentifier(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		fields["username"] = username
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			fields["phone"] = nil
		} else {
			fields["phone"] = phone
		}
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		if db.IsUniqueViolation(err, "username") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "username already taken")
		}
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

func (s *service) UpdateAvatar(ctx context.Context, id uuid.UUID, file media.File) (*UserDTO, error) {
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image uploads unavailable")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	img, err := s.images.Upload(ctx, media.KindAvatar, id, file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]any{"avatar_url": img.URL, "avatar_object": img.Object}); err != nil {
		_ = s.images.Delete(ctx, img.Object)
		return nil, mapLookupError(err)
	}
	if user.AvatarObject != nil {
		_ = s.images.Delete(ctx, *user.AvatarObject)
	}
	return s.Get(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery, page pagination.Page) (*ListResult, error) {
	page = pagination.NormalizePage(page)
	rows, total, err := s.repo.List(ctx, q, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return &ListResult{Users: out, Meta: pagination.NewPageMeta(page, total)}, nil
}

func (s *service) ChangeRole(ctx context.Context, actorID, id uuid.UUID, role enums.Role) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", role)
	}
	if actorID == id {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot change your own role")
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, mapLookupError(err)
	}
	return s.Get(ctx, id)
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
}
