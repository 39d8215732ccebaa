// Package testutil holds shared fixtures for repository and service tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDB returns an isolated in-memory SQLite database with every model migrated.
// A single connection serializes transactions the way row locks would on Postgres.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

// MustCreateUser inserts a user with a unique email and username.
func MustCreateUser(t testing.TB, conn *gorm.DB, role enums.Role) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Email:        "user_" + suffix + "@example.com",
		Username:     "user_" + suffix,
		FullName:     "Test User",
		PasswordHash: "hash",
		Role:         role,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// MustCreateCategory inserts a category with the given name.
func MustCreateCategory(t testing.TB, conn *gorm.DB, name string, parentID *uuid.UUID) *models.Category {
	t.Helper()
	key := fmt.Sprintf("%s-%s", name, uuid.NewString()[:6])
	category := &models.Category{Name: name, NameKey: key, Slug: key, ParentID: parentID}
	require.NoError(t, conn.Create(category).Error)
	return category
}

// MustCreateProduct inserts a product priced in cents with the given stock.
func MustCreateProduct(t testing.TB, conn *gorm.DB, priceCents int64, stock int, categoryID *uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:      "Product " + uuid.NewString()[:8],
		PriceCents: priceCents,
		Stock:      stock,
		CategoryID: categoryID,
		Images:     dbtypes.Images{{URL: "https://cdn.test/p.png", Object: "products/p.png"}},
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

// ReloadProduct reads a product back from the database.
func ReloadProduct(t testing.TB, conn *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()
	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", id).Error)
	return &product
}

// MustCreateOrder inserts an order without items; CreatedAt is kept when set.
func MustCreateOrder(t testing.TB, conn *gorm.DB, order *models.Order) *models.Order {
	t.Helper()
	if order.CustomerName == "" {
		order.CustomerName = "Test User"
		order.CustomerEmail = "buyer@example.com"
	}
	if order.ShippingAddress == "" {
		order.ShippingAddress = "1 Main St"
		order.ShippingCity = "Springfield"
		order.ShippingPostalCode = "12345"
		order.ShippingCountry = "US"
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = enums.PaymentMethodCOD
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}
