package product

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxImages caps how many pictures a product may carry.
const MaxImages = 10

// Service exposes catalog product management.
type Service interface {
	CreateProduct(ctx context.Context, input CreateInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) (*ProductDTO, error)
	AddImages(ctx context.Context, id uuid.UUID, files []media.File) (*ProductDTO, error)
	RemoveImage(ctx context.Context, id uuid.UUID, index int) (*ProductDTO, error)
}

type categoryScope interface {
	ScopeIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type imageStore interface {
	Upload(ctx context.Context, kind media.Kind, ownerID uuid.UUID, file media.File) (*dbtypes.Image, error)
	Delete(ctx context.Context, objects ...string) error
}

type service struct {
	repo       *Repository
	categories categoryScope
	images     imageStore
	logg       *logger.Logger
}

// NewService wires the product service dependencies.
func NewService(repo *Repository, categories categoryScope, images imageStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if categories == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "category scope required")
	}
	if images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "image store required")
	}
	return &service{repo: repo, categories: categories, images: images, logg: logg}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateInput) (*ProductDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if err := validatePricing(input.Price.Cents(), input.DiscountPrice.Cents()); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}
	if err := s.ensureTitleFree(ctx, title, nil); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Title:              title,
		Description:        strings.TrimSpace(input.Description),
		PriceCents:         input.Price.Cents(),
		DiscountPriceCents: input.DiscountPrice.Cents(),
		Stock:              input.Stock,
		CategoryID:         input.CategoryID,
		Images:             dbtypes.Images{},
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product title already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}

	fields := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		if title != current.Title {
			if err := s.ensureTitleFree(ctx, title, &id); err != nil {
				return nil, err
			}
			fields["title"] = title
		}
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}

	price, discount := current.PriceCents, current.DiscountPriceCents
	if input.Price != nil {
		price = input.Price.Cents()
		fields["price_cents"] = price
	}
	if input.DiscountPrice != nil {
		discount = input.DiscountPrice.Cents()
		fields["discount_price_cents"] = discount
	}
	if err := validatePricing(price, discount); err != nil {
		return nil, err
	}

	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
		}
		fields["stock"] = *input.Stock
	}

	switch {
	case input.ClearCategory:
		fields["category_id"] = nil
	case input.CategoryID != nil:
		if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *input.CategoryID
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product title already exists")
			}
			return nil, mapLookupError(err)
		}
	}
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	if objects := current.Images.Objects(); len(objects) > 0 {
		_ = s.images.Delete(ctx, objects...)
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Sort == "" {
		input.Sort = enums.ProductSortNewest
	}
	if !input.Sort.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid sort %q", input.Sort)
	}
	if input.MinPriceCents != nil && input.MaxPriceCents != nil && *input.MinPriceCents > *input.MaxPriceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}
	if input.MinRating != nil && (*input.MinRating < 0 || *input.MinRating > 5) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_rating must be between 0 and 5")
	}

	query := productListQuery{
		Keyword:       input.Keyword,
		MinPriceCents: input.MinPriceCents,
		MaxPriceCents: input.MaxPriceCents,
		MinRating:     input.MinRating,
		InStock:       input.InStock,
		Sort:          input.Sort,
		Page:          pagination.NormalizePage(input.Page),
	}
	if input.CategoryID != nil {
		ids, err := s.categories.ScopeIDs(ctx, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		query.CategoryIDs = ids
	}

	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	result := &ProductListResult{
		Products: make([]ProductDTO, 0, len(rows)),
		Meta:     pagination.NewPageMeta(query.Page, total),
	}
	for i := range rows {
		result.Products = append(result.Products, FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) SetStock(ctx context.Context, id uuid.UUID, stock int) (*ProductDTO, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"stock": stock}); err != nil {
		return nil, mapLookupError(err)
	}
	if s.logg != nil {
		s.logg.InfoFields(ctx, "product.stock_set", map[string]any{"product_id": id.String(), "stock": stock})
	}
	return s.GetProduct(ctx, id)
}

func (s *service) AddImages(ctx context.Context, id uuid.UUID, files []media.File) (*ProductDTO, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if len(current.Images)+len(files) > MaxImages {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "a product can hold at most %d images", MaxImages)
	}

	uploaded := make(dbtypes.Images, 0, len(files))
	for _, file := range files {
		image, err := s.images.Upload(ctx, media.KindProduct, id, file)
		if err != nil {
			s.discard(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, *image)
	}

	images := append(append(dbtypes.Images{}, current.Images...), uploaded...)
	if err := s.repo.SetImages(ctx, id, images); err != nil {
		s.discard(ctx, uploaded)
		return nil, mapLookupError(err)
	}
	return s.GetProduct(ctx, id)
}

func (s *service) RemoveImage(ctx context.Context, id uuid.UUID, index int) (*ProductDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if index < 0 || index >= len(current.Images) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "image %d not found", index)
	}

	removed := current.Images[index]
	images := make(dbtypes.Images, 0, len(current.Images)-1)
	images = append(images, current.Images[:index]...)
	images = append(images, current.Images[index+1:]...)
	if err := s.repo.SetImages(ctx, id, images); err != nil {
		return nil, mapLookupError(err)
	}
	if removed.Object != "" {
		_ = s.images.Delete(ctx, removed.Object)
	}
	return s.GetProduct(ctx, id)
}

func (s *service) discard(ctx context.Context, images dbtypes.Images) {
	if objects := images.Objects(); len(objects) > 0 {
		_ = s.images.Delete(ctx, objects...)
	}
}

func (s *service) ensureTitleFree(ctx context.Context, title string, excludeID *uuid.UUID) error {
	taken, err := s.repo.TitleTaken(ctx, title, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product title")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "product title already exists")
	}
	return nil
}

func (s *service) ensureCategory(ctx context.Context, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	_, err := s.categories.ScopeIDs(ctx, *categoryID)
	return err
}

// validatePricing enforces price > 0 and a discount of 0 (none) or strictly below price.
func validatePricing(priceCents, discountCents int64) error {
	if priceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than 0")
	}
	if discountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_price must be >= 0")
	}
	if discountCents != 0 && discountCents >= priceCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_price must be lower than price")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
}
