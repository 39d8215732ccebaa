package product

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/internal/testutil"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubImages struct {
	uploaded  int
	deleted   []string
	uploadErr error
}

func (s *stubImages) Upload(ctx context.Context, kind media.Kind, ownerID uuid.UUID, file media.File) (*dbtypes.Image, error) {
	if s.uploadErr != nil && s.uploaded > 0 {
		return nil, s.uploadErr
	}
	s.uploaded++
	object := string(kind) + "/" + ownerID.String() + "/" + uuid.NewString()[:8] + ".png"
	return &dbtypes.Image{URL: "https://cdn.test/" + object, Object: object}, nil
}

func (s *stubImages) Delete(ctx context.Context, objects ...string) error {
	s.deleted = append(s.deleted, objects...)
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB, *stubImages) {
	t.Helper()
	conn := testutil.OpenDB(t)
	categorySvc, err := categories.NewService(categories.NewRepository(conn), nil)
	require.NoError(t, err)
	images := &stubImages{}
	svc, err := NewService(NewRepository(conn), categorySvc, images, nil)
	require.NoError(t, err)
	return svc, conn, images
}

func money(v int64) *types.Money {
	m := types.Money(v)
	return &m
}

func TestCreateProductValidatesPricingAndTitle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateInput{Title: " Phone ", Price: 49900, DiscountPrice: 44900, Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "Phone", created.Title)
	assert.Equal(t, types.Money(44900), created.EffectivePrice)
	assert.True(t, created.InStock)
	assert.Empty(t, created.Images)

	_, err = svc.CreateProduct(ctx, CreateInput{Title: "Phone", Price: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.CreateProduct(ctx, CreateInput{Title: "Cable", Price: 100, DiscountPrice: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateInput{Title: "Cable", Price: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateInput{Title: "Cable", Price: 100, Stock: -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, CreateInput{Title: "Cable", Price: 100, CategoryID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProductChecksDiscountAgainstMergedState(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateInput{Title: "Laptop", Price: 100000, DiscountPrice: 90000})
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, created.ID, UpdateInput{Price: money(80000)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "discount above the new price")

	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateInput{Price: money(80000), DiscountPrice: money(0)})
	require.NoError(t, err)
	assert.Equal(t, types.Money(80000), updated.EffectivePrice)

	_, err = svc.UpdateProduct(ctx, uuid.New(), UpdateInput{Price: money(10)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProductRejectsTakenTitle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateInput{Title: "Mouse", Price: 1000})
	require.NoError(t, err)
	keyboard, err := svc.CreateProduct(ctx, CreateInput{Title: "Keyboard", Price: 2000})
	require.NoError(t, err)

	title := "Mouse"
	_, err = svc.UpdateProduct(ctx, keyboard.ID, UpdateInput{Title: &title})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	same := "Keyboard"
	_, err = svc.UpdateProduct(ctx, keyboard.ID, UpdateInput{Title: &same})
	require.NoError(t, err)
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	electronics := testutil.MustCreateCategory(t, conn, "Electronics", nil)
	phones := testutil.MustCreateCategory(t, conn, "Phones", &electronics.ID)
	books := testutil.MustCreateCategory(t, conn, "Books", nil)

	phone, err := svc.CreateProduct(ctx, CreateInput{Title: "Smart Phone X", Price: 50000, DiscountPrice: 30000, Stock: 2, CategoryID: &phones.ID})
	require.NoError(t, err)
	tv, err := svc.CreateProduct(ctx, CreateInput{Title: "Smart TV", Price: 40000, Stock: 0, CategoryID: &electronics.ID})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateInput{Title: "Go Book 100%", Price: 3000, Stock: 9, CategoryID: &books.ID})
	require.NoError(t, err)
	require.NoError(t, conn.Exec("UPDATE products SET rating = 4.5 WHERE id = ?", tv.ID).Error)

	all, err := svc.ListProducts(ctx, ListProductsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Meta.Total)

	scoped, err := svc.ListProducts(ctx, ListProductsInput{CategoryID: &electronics.ID, Sort: enums.ProductSortPriceAsc})
	require.NoError(t, err)
	require.Len(t, scoped.Products, 2)
	assert.Equal(t, phone.ID, scoped.Products[0].ID, "phone is cheaper after discount")

	keyword, err := svc.ListProducts(ctx, ListProductsInput{Keyword: "SMART"})
	require.NoError(t, err)
	assert.Len(t, keyword.Products, 2)

	literal, err := svc.ListProducts(ctx, ListProductsInput{Keyword: "100%"})
	require.NoError(t, err)
	assert.Len(t, literal.Products, 1)

	minPrice, maxPrice := int64(25000), int64(35000)
	priced, err := svc.ListProducts(ctx, ListProductsInput{MinPriceCents: &minPrice, MaxPriceCents: &maxPrice})
	require.NoError(t, err)
	require.Len(t, priced.Products, 1)
	assert.Equal(t, phone.ID, priced.Products[0].ID)

	inStock, err := svc.ListProducts(ctx, ListProductsInput{InStock: true, CategoryID: &electronics.ID})
	require.NoError(t, err)
	require.Len(t, inStock.Products, 1)

	minRating := 4.0
	rated, err := svc.ListProducts(ctx, ListProductsInput{MinRating: &minRating})
	require.NoError(t, err)
	require.Len(t, rated.Products, 1)
	assert.Equal(t, tv.ID, rated.Products[0].ID)

	paged, err := svc.ListProducts(ctx, ListProductsInput{Sort: enums.ProductSortPriceDesc, Page: pagination.Page{Number: 2, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged.Products, 1)
	assert.Equal(t, 2, paged.Meta.TotalPages)

	_, err = svc.ListProducts(ctx, ListProductsInput{Sort: "cheapest"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetStock(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateInput{Title: "Lamp", Price: 1500, Stock: 1})
	require.NoError(t, err)

	updated, err := svc.SetStock(ctx, created.ID, 0)
	require.NoError(t, err)
	assert.False(t, updated.InStock)

	_, err = svc.SetStock(ctx, created.ID, -2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.SetStock(ctx, uuid.New(), 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestImagesAddRemoveAndCleanup(t *testing.T) {
	svc, _, images := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateInput{Title: "Camera", Price: 70000})
	require.NoError(t, err)

	withImages, err := svc.AddImages(ctx, created.ID, []media.File{{FileName: "a.png"}, {FileName: "b.png"}})
	require.NoError(t, err)
	require.Len(t, withImages.Images, 2)

	afterRemove, err := svc.RemoveImage(ctx, created.ID, 0)
	require.NoError(t, err)
	require.Len(t, afterRemove.Images, 1)
	assert.Equal(t, withImages.Images[1], afterRemove.Images[0])
	assert.Len(t, images.deleted, 1)

	_, err = svc.RemoveImage(ctx, created.ID, 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	assert.Len(t, images.deleted, 2)

	_, err = svc.GetProduct(ctx, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAddImagesDiscardsPartialUploads(t *testing.T) {
	svc, _, images := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateInput{Title: "Drone", Price: 90000})
	require.NoError(t, err)

	images.uploadErr = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("bucket down"), "upload image")
	_, err = svc.AddImages(ctx, created.ID, []media.File{{FileName: "a.png"}, {FileName: "b.png"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Len(t, images.deleted, 1)

	reloaded, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Images)
}
