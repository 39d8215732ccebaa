package cart

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalcart "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCartService struct {
	userID   uuid.UUID
	added    *internalcart.AddItemInput
	quantity *int
	cleared  bool
	err      error
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*internalcart.CartDTO, error) {
	s.userID = userID
	return &internalcart.CartDTO{Items: []internalcart.ItemDTO{}}, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input internalcart.AddItemInput) (*internalcart.CartDTO, error) {
	s.userID = userID
	s.added = &input
	if s.err != nil {
		return nil, s.err
	}
	return &internalcart.CartDTO{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*internalcart.CartDTO, error) {
	s.quantity = &qty
	return &internalcart.CartDTO{}, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*internalcart.CartDTO, error) {
	return &internalcart.CartDTO{}, s.err
}

func (s *stubCartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	return s.err
}

func newLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), userID, enums.RoleUser))
}

func TestCartRequiresAuthentication(t *testing.T) {
	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	Get(svc, newLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, uuid.Nil, svc.userID)
}

func TestAddItemDecodesAndMapsConflict(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	body := `{"product_id":"` + productID.String() + `","quantity":2}`

	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	AddItem(svc, newLogger()).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.added)
	assert.Equal(t, productID, svc.added.ProductID)
	assert.Equal(t, 2, svc.added.Quantity)
	assert.Equal(t, userID, svc.userID)

	svc = &stubCartService{err: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")}
	rec = httptest.NewRecorder()
	AddItem(svc, newLogger()).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), userID))
	assert.Equal(t, http.StatusConflict, rec.Code)

	svc = &stubCartService{}
	rec = httptest.NewRecorder()
	AddItem(svc, newLogger()).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"product_id":"`+productID.String()+`","quantity":0}`)), userID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.added)
}

func TestUpdateItemAllowsZero(t *testing.T) {
	svc := &stubCartService{}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", uuid.NewString())
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/x", strings.NewReader(`{"quantity":0}`))
	req = authed(req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)), uuid.New())

	rec := httptest.NewRecorder()
	UpdateItem(svc, newLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.quantity)
	assert.Zero(t, *svc.quantity)
}

func TestClear(t *testing.T) {
	svc := &stubCartService{}
	rec := httptest.NewRecorder()
	Clear(svc, newLogger()).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil), uuid.New()))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.cleared)
}
