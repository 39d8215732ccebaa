package categories

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const maxDepth = 64

type imageStore interface {
	Upload(ctx context.Context, kind media.Kind, ownerID uuid.UUID, file media.File) (*dbtypes.Image, error)
	Delete(ctx context.Context, objects ...string) error
}

// Service manages the category catalog.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, idOrSlug string) (*CategoryDTO, error)
	List(ctx context.Context) ([]CategoryDTO, error)
	Tree(ctx context.Context) ([]Node, error)
	UpdateImage(ctx context.Context, id uuid.UUID, file media.File) (*CategoryDTO, error)
	// ScopeIDs returns the category and its direct children, for product filtering.
	ScopeIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo   *Repository
	images imageStore
}

func NewService(repo *Repository, images imageStore) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "category repository required")
	}
	return &service{repo: repo, images: images}, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CategoryDTO, error) {
	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := s.ensureNameFree(ctx, name, nil); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *input.ParentID); err != nil {
			return nil, mapParentError(err)
		}
	}
	categorySlug, err := s.uniqueSlug(ctx, name, nil)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:     name,
		NameKey:  nameKey(name),
		Slug:     categorySlug,
		ParentID: input.ParentID,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	dto := FromModel(category)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CategoryDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.Join(strings.Fields(*input.Name), " ")
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		if name != current.Name {
			if err := s.ensureNameFree(ctx, name, &id); err != nil {
				return nil, err
			}
			categorySlug, err := s.uniqueSlug(ctx, name, &id)
			if err != nil {
				return nil, err
			}
			fields["name"] = name
			fields["name_key"] = nameKey(name)
			fields["slug"] = categorySlug
		}
	}

	switch {
	case input.ClearParent:
		fields["parent_id"] = nil
	case input.ParentID != nil:
		if err := s.checkParent(ctx, id, *input.ParentID); err != nil {
			return nil, err
		}
		fields["parent_id"] = *input.ParentID
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category already exists")
			}
			return nil, mapLookupError(err)
		}
	}
	return s.getByID(ctx, id)
}

// checkParent rejects self-parenting and moves under a descendant.
func (s *service) checkParent(ctx context.Context, id, parentID uuid.UUID) error {
	if parentID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
	}
	cursor := &parentID
	for depth := 0; cursor != nil; depth++ {
		if depth > maxDepth {
			return pkgerrors.New(pkgerrors.CodeValidation, "category hierarchy too deep")
		}
		if *cursor == id {
			return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be moved under its own descendant")
		}
		next, err := s.repo.ParentID(ctx, *cursor)
		if err != nil {
			return mapParentError(err)
		}
		cursor = next
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupError(err)
	}
	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count subcategories")
	}
	if children > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "category has subcategories")
	}
	products, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}
	if products > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "category has products")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	if current.ImageObject != nil && s.images != nil {
		_ = s.images.Delete(ctx, *current.ImageObject)
	}
	return nil
}

func (s *service) Get(ctx context.Context, idOrSlug string) (*CategoryDTO, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.getByID(ctx, id)
	}
	category, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(idOrSlug)))
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(category)
	return &dto, nil
}

func (s *service) getByID(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(category)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Tree(ctx context.Context) ([]Node, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return BuildTree(rows), nil
}

func (s *service) UpdateImage(ctx context.Context, id uuid.UUID, file media.File) (*CategoryDTO, error) {
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image uploads unavailable")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	img, err := s.images.Upload(ctx, media.KindCategory, id, file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, map[string]any{"image_url": img.URL, "image_object": img.Object}); err != nil {
		_ = s.images.Delete(ctx, img.Object)
		return nil, mapLookupError(err)
	}
	if current.ImageObject != nil {
		_ = s.images.Delete(ctx, *current.ImageObject)
	}
	return s.getByID(ctx, id)
}

func (s *service) ScopeIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, mapLookupError(err)
	}
	children, err := s.repo.ChildIDs(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subcategories")
	}
	return append([]uuid.UUID{id}, children...), nil
}

func (s *service) ensureNameFree(ctx context.Context, name string, excludeID *uuid.UUID) error {
	taken, err := s.repo.NameKeyTaken(ctx, nameKey(name), excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check category name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
	}
	return nil
}

// uniqueSlug derives a slug from name and appends -2, -3... until it is free.
func (s *service) uniqueSlug(ctx context.Context, name string, excludeID *uuid.UUID) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "category"
	}
	existing, err := s.repo.SlugsWithPrefix(ctx, base, excludeID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check slug")
	}
	used := make(map[string]bool, len(existing))
	for _, existingSlug := range existing {
		used[existingSlug] = true
	}
	if !used[base] {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !used[candidate] {
			return candidate, nil
		}
	}
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
}

func mapParentError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "parent category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent category")
}
