package orders

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubOrderService struct {
	placed    *internalorders.PlaceOrderInput
	params    *pagination.Params
	query     *internalorders.ListQuery
	status    *internalorders.UpdateStatusInput
	settle    *internalorders.SettleOptions
	getActor  enums.Role
	cancelled uuid.UUID
	err       error
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, input internalorders.PlaceOrderInput) (*internalorders.OrderDTO, error) {
	s.placed = &input
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: uuid.New(), UserID: userID}, nil
}

func (s *stubOrderService) Get(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	s.getActor = actorRole
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: orderID}, nil
}

func (s *stubOrderService) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.MineResult, error) {
	s.params = &params
	return &internalorders.MineResult{Orders: []internalorders.OrderDTO{}}, s.err
}

func (s *stubOrderService) List(ctx context.Context, query internalorders.ListQuery, page pagination.Page) (*internalorders.ListResult, error) {
	s.query = &query
	return &internalorders.ListResult{Orders: []internalorders.OrderDTO{}}, s.err
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, input internalorders.UpdateStatusInput) (*internalorders.OrderDTO, error) {
	s.status = &input
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: orderID, Status: input.Status}, nil
}

func (s *stubOrderService) CancelOwn(ctx context.Context, userID, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	s.cancelled = orderID
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: orderID, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrderService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	return &internalorders.OrderDTO{ID: orderID, IsPaid: true}, s.err
}

func (s *stubOrderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	return &internalorders.OrderDTO{ID: orderID, IsDelivered: true}, s.err
}

func (s *stubOrderService) SettleCOD(ctx context.Context, opts internalorders.SettleOptions) (int64, error) {
	s.settle = &opts
	return 4, s.err
}

func (s *stubOrderService) AttachPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error {
	return s.err
}

func (s *stubOrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, intentID string) (bool, error) {
	return true, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func request(method, target, body string, role enums.Role, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := req.Context()
	if role != "" {
		ctx = middleware.WithActor(ctx, uuid.New(), role)
	}
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestPlaceValidatesBody(t *testing.T) {
	svc := &stubOrderService{}
	productID := uuid.New()
	valid := `{"items":[{"product_id":"` + productID.String() + `","quantity":2}],` +
		`"shipping_address":{"address":"1 Main St","city":"Springfield","postal_code":"12345","country":"US"},` +
		`"payment_method":"cod"}`

	rec := httptest.NewRecorder()
	Place(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/orders", valid, "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	Place(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/orders", `{"items":[],"payment_method":"cod"}`, enums.RoleUser, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.placed)

	rec = httptest.NewRecorder()
	Place(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/orders", valid, enums.RoleUser, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.placed)
	assert.Equal(t, productID, svc.placed.Items[0].ProductID)
	assert.Equal(t, enums.PaymentMethodCOD, svc.placed.PaymentMethod)
}

func TestMinePassesCursor(t *testing.T) {
	svc := &stubOrderService{}
	rec := httptest.NewRecorder()
	Mine(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/orders/mine?limit=5&cursor=abc", "", enums.RoleUser, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.params)
	assert.Equal(t, 5, svc.params.Limit)
	assert.Equal(t, "abc", svc.params.Cursor)
}

func TestDetailMapsForbidden(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")}
	rec := httptest.NewRecorder()
	Detail(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/", "", enums.RoleUser, map[string]string{"orderId": uuid.NewString()}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, enums.RoleUser, svc.getActor)
}

func TestCancelStateConflict(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")}
	orderID := uuid.New()
	rec := httptest.NewRecorder()
	Cancel(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", "", enums.RoleUser, map[string]string{"orderId": orderID.String()}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, orderID, svc.cancelled)
}

func TestAdminListFilters(t *testing.T) {
	svc := &stubOrderService{}
	userID := uuid.New()
	rec := httptest.NewRecorder()
	AdminList(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet,
		"/api/v1/admin/orders?status=shipped&payment_method=card&is_paid=false&user_id="+userID.String(), "", enums.RoleAdmin, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.query)
	assert.Equal(t, enums.OrderStatusShipped, *svc.query.Status)
	assert.Equal(t, enums.PaymentMethodCard, *svc.query.PaymentMethod)
	assert.False(t, *svc.query.IsPaid)
	assert.Equal(t, userID, *svc.query.UserID)

	svc = &stubOrderService{}
	rec = httptest.NewRecorder()
	AdminList(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/admin/orders?status=lost", "", enums.RoleAdmin, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.query)
}

func TestAdminUpdateStatusOverride(t *testing.T) {
	svc := &stubOrderService{}
	rec := httptest.NewRecorder()
	AdminUpdateStatus(svc, testLogger()).ServeHTTP(rec, request(http.MethodPatch, "/",
		`{"status":"pending","override":true}`, enums.RoleAdmin, map[string]string{"orderId": uuid.NewString()}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, enums.OrderStatusPending, svc.status.Status)
	assert.True(t, svc.status.Override)
}

func TestAdminSettleCODOptionalBody(t *testing.T) {
	svc := &stubOrderService{}
	rec := httptest.NewRecorder()
	AdminSettleCOD(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/admin/orders/settle-cod", "", enums.RoleAdmin, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.settle.MarkDelivered)
	assert.Contains(t, rec.Body.String(), `"settled":4`)

	svc = &stubOrderService{}
	rec = httptest.NewRecorder()
	AdminSettleCOD(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/admin/orders/settle-cod", `{"mark_delivered":true}`, enums.RoleAdmin, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.settle.MarkDelivered)
}
