package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
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

// Service defines order placement, lifecycle and settlement operations.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*MineResult, error)
	List(ctx context.Context, query ListQuery, page pagination.Page) (*ListResult, error)
	UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	CancelOwn(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	SettleCOD(ctx context.Context, opts SettleOptions) (int64, error)
	AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error
	// ConfirmPayment marks an order paid from a provider callback. Already paid is a no-op.
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error)
}

// ServiceParams carries the order service dependencies.
type ServiceParams struct {
	Repo      Repository
	Products  *product.Repository
	Carts     *cart.Repository
	Customers customerDirectory
	Tx        txRunner
	Pricing   config.PricingConfig
	Orders    config.OrdersConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	products  *product.Repository
	carts     *cart.Repository
	customers customerDirectory
	tx        txRunner
	pricing   config.PricingConfig
	cfg       config.OrdersConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer directory required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		carts:     params.Carts,
		customers: params.Customers,
		tx:        params.Tx,
		pricing:   params.Pricing,
		cfg:       params.Orders,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderDTO, error) {
	if err := validatePlacement(input); err != nil {
		return nil, err
	}
	lines, err := mergeItems(input.Items)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	phone := strings.TrimSpace(input.Phone)
	if phone == "" && customer.Phone != nil {
		phone = *customer.Phone
	}

	order := &models.Order{
		UserID:             userID,
		CustomerName:       customer.FullName,
		CustomerEmail:      customer.Email,
		CustomerPhone:      phone,
		ShippingAddress:    strings.TrimSpace(input.Shipping.Address),
		ShippingCity:       strings.TrimSpace(input.Shipping.City),
		ShippingPostalCode: strings.TrimSpace(input.Shipping.PostalCode),
		ShippingCountry:    strings.TrimSpace(input.Shipping.Country),
		PaymentMethod:      input.PaymentMethod,
		Status:             enums.OrderStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ProductID)
		}
		found, err := products.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
		}

		order.Items = make([]models.OrderItem, 0, len(lines))
		for i, line := range lines {
			item, ok := found[line.ProductID]
			if !ok {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", line.ProductID)
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID:  item.ID,
				Title:      item.Title,
				Quantity:   line.Quantity,
				PriceCents: item.EffectivePriceCents(),
				ImageURL:   item.PrimaryImageURL(),
				Position:   i,
			})
		}

		totals := computeTotals(order.Items, s.pricing)
		if input.TotalPrice != nil && input.TotalPrice.Cents() != totals.Total {
			return pkgerrors.New(pkgerrors.CodeValidation, "total price mismatch").
				WithDetails(map[string]any{"expected": totals.Total, "received": input.TotalPrice.Cents()})
		}
		order.ItemsPriceCents = totals.Items
		order.TaxPriceCents = totals.Tax
		order.ShippingPriceCents = totals.Shipping
		order.TotalPriceCents = totals.Total

		for _, line := range lines {
			ok, err := products.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
			}
			if !ok {
				item := found[line.ProductID]
				return pkgerrors.Newf(pkgerrors.CodeConflict, "insufficient stock for %q", item.Title).
					WithDetails(map[string]any{"product_id": item.ID, "requested": line.Quantity})
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if input.ClearCart {
			if err := s.carts.WithTx(tx).DeleteByUser(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.InfoFields(ctx, "order.placed", map[string]any{
			"order_id":       order.ID.String(),
			"payment_method": order.PaymentMethod,
			"total_cents":    order.TotalPriceCents,
			"lines":          len(order.Items),
		})
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actorID && actorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*MineResult, error) {
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.ListByUser(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	result := &MineResult{Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		result.Orders = append(result.Orders, FromModel(&rows[i]))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) List(ctx context.Context, query ListQuery, page pagination.Page) (*ListResult, error) {
	if query.Status != nil && !query.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *query.Status)
	}
	if query.PaymentMethod != nil && !query.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", *query.PaymentMethod)
	}
	page = pagination.NormalizePage(page)
	rows, total, err := s.repo.List(ctx, query, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	result := &ListResult{Orders: make([]OrderDTO, 0, len(rows)), Meta: pagination.NewPageMeta(page, total)}
	for i := range rows {
		result.Orders = append(result.Orders, FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) SettleCOD(ctx context.Context, opts SettleOptions) (int64, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg.CODSettlementAge())
	count, err := s.repo.SettleCOD(ctx, cutoff, now, opts.MarkDelivered)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle cod orders")
	}
	if s.logg != nil {
		s.logg.InfoFields(ctx, "orders.cod_settled", map[string]any{
			"count":          count,
			"cutoff":         cutoff,
			"mark_delivered": opts.MarkDelivered,
		})
	}
	return count, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func validatePlacement(input PlaceOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than 0")
		}
		if item.Quantity > MaxLineQuantity {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at most %d", MaxLineQuantity)
		}
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.PaymentMethod)
	}
	shipping := input.Shipping
	for field, value := range map[string]string{
		"address":     shipping.Address,
		"city":        shipping.City,
		"postal_code": shipping.PostalCode,
		"country":     shipping.Country,
	} {
		if strings.TrimSpace(value) == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "shipping %s is required", field)
		}
	}
	return nil
}

// mergeItems folds duplicate product lines, keeping first-seen order. Merged
// quantities are capped at MaxLineQuantity.
func mergeItems(items []PlaceOrderItem) ([]PlaceOrderItem, error) {
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]PlaceOrderItem, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.ProductID]; ok {
			if merged[pos].Quantity > MaxLineQuantity-item.Quantity {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at most %d", MaxLineQuantity).
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}
