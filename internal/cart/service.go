package cart

import (
	"context"
	"errors"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the caller's cart. Lines are checked against live stock on
// every mutation; nothing is reserved.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     *Repository
	products *product.Repository
	tx       txRunner
}

func NewService(repo *Repository, products *product.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, products: products, tx: tx}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		empty := FromModel(nil)
		return &empty, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	dto := FromModel(cart)
	return &dto, nil
}

// errLineRaced reports that another request created the same cart line first.
var errLineRaced = errors.New("cart line created concurrently")

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than 0")
	}

	add := func(tx *gorm.DB) error { return s.addItem(ctx, tx, userID, input) }
	err := s.tx.WithTx(ctx, add)
	if errors.Is(err, errLineRaced) {
		// the line exists now, so the second pass merges into it
		err = s.tx.WithTx(ctx, add)
	}
	if errors.Is(err, errLineRaced) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart changed concurrently, retry")
	}
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *service) addItem(ctx context.Context, tx *gorm.DB, userID uuid.UUID, input AddItemInput) error {
	repo := s.repo.WithTx(tx)
	item, err := s.loadProduct(ctx, tx, input.ProductID)
	if err != nil {
		return err
	}
	if item.Stock < input.Quantity {
		return insufficientStock(item, input.Quantity)
	}

	cart, err := repo.FindOrCreate(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	line, err := repo.FindItem(ctx, cart.ID, item.ID)
	switch {
	case err == nil:
		total := line.Quantity + input.Quantity
		if total > item.Stock {
			return insufficientStock(item, total)
		}
		if err := repo.UpdateItemQuantity(ctx, line.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		line = &models.CartItem{
			CartID:     cart.ID,
			ProductID:  item.ID,
			Quantity:   input.Quantity,
			PriceCents: item.EffectivePriceCents(),
		}
		if err := repo.CreateItem(ctx, line); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errLineRaced
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
		}
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	return nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if qty == 0 {
			removed, err := repo.DeleteItem(ctx, userID, productID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
			}
			if !removed {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
			}
			return nil
		}

		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product is not in the cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		line, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product is not in the cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}

		item, err := s.loadProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if qty > item.Stock {
			return insufficientStock(item, qty)
		}
		if err := repo.UpdateItemQuantity(ctx, line.ID, qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	if _, err := s.repo.DeleteItem(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	return s.GetCart(ctx, userID)
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteByUser(ctx, userID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	item, err := s.products.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return item, nil
}

func insufficientStock(item *models.Product, requested int) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "only %d of %q in stock", item.Stock, item.Title).
		WithDetails(map[string]any{"product_id": item.ID, "requested": requested, "available": item.Stock})
}
