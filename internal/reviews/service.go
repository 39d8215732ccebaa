package reviews

import (
	"context"
	"errors"
	"strings"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages product reviews. Every write recomputes the product's
// rating and review count inside the same transaction.
type Service interface {
	Upsert(ctx context.Context, userID uuid.UUID, input UpsertInput) (*ReviewDTO, error)
	Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error)
	Delete(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID, page pagination.Page) (*ListResult, error)
}

type service struct {
	repo     *Repository
	products *product.Repository
	tx       txRunner
	logg     *logger.Logger
}

func NewService(repo *Repository, products *product.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "review repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, products: products, tx: tx, logg: logg}, nil
}

func (s *service) Upsert(ctx context.Context, userID uuid.UUID, input UpsertInput) (*ReviewDTO, error) {
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(input.Comment)

	var reviewID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.products.WithTx(tx).FindByID(ctx, input.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}

		existing, err := repo.FindByProductAndUser(ctx, input.ProductID, userID)
		switch {
		case err == nil:
			reviewID = existing.ID
			if err := repo.Update(ctx, existing.ID, map[string]any{"rating": input.Rating, "comment": comment}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			review := &models.Review{ProductID: input.ProductID, UserID: userID, Rating: input.Rating, Comment: comment}
			if err := repo.Create(ctx, review); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "review already submitted")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
			}
			reviewID = review.ID
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		return s.recompute(ctx, tx, input.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, reviewID)
}

func (s *service) Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error) {
	fields := map[string]any{}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
		fields["rating"] = *input.Rating
	}
	if input.Comment != nil {
		fields["comment"] = strings.TrimSpace(*input.Comment)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			return mapLookupError(err)
		}
		if review.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author can edit a review")
		}
		if len(fields) == 0 {
			return nil
		}
		if err := repo.Update(ctx, reviewID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review")
		}
		return s.recompute(ctx, tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, reviewID)
}

func (s *service) Delete(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, reviewID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			return mapLookupError(err)
		}
		if review.UserID != actorID && actorRole != enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin can delete a review")
		}
		if err := repo.Delete(ctx, reviewID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
		}
		if review.UserID != actorID && s.logg != nil {
			s.logg.InfoFields(ctx, "review.deleted_by_admin", map[string]any{"review_id": reviewID.String(), "author_id": review.UserID.String()})
		}
		return s.recompute(ctx, tx, review.ProductID)
	})
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, page pagination.Page) (*ListResult, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	page = pagination.NormalizePage(page)
	rows, total, err := s.repo.ListByProduct(ctx, productID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	result := &ListResult{Reviews: make([]ReviewDTO, 0, len(rows)), Meta: pagination.NewPageMeta(page, total)}
	for i := range rows {
		result.Reviews = append(result.Reviews, FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) recompute(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	average, total, err := s.repo.WithTx(tx).Aggregate(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate reviews")
	}
	if err := s.products.WithTx(tx).UpdateRating(ctx, productID, average, total); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store product rating")
	}
	return nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(review)
	return &dto, nil
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "review not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
}
