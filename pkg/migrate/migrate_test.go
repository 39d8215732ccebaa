package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	embeddedNames, err := EmbeddedFiles()
	require.NoError(t, err)

	disk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	assert.Len(t, embeddedNames, len(disk))
}

func TestCommerceMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_commerce_tables.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (quantity > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_cart_product",
		"WHERE payment_method = 'cod' AND is_paid = false",
		"DROP TABLE IF EXISTS orders",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestCatalogMigrationGuardsStockAndDiscount(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_catalog_tables.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "CHECK (stock >= 0)")
	assert.Contains(t, content, "CHECK (discount_price_cents = 0 OR discount_price_cents < price_cents)")
	assert.Contains(t, content, "idx_reviews_product_user")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Wishlist Table!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_wishlist_table.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	assert.Error(t, ValidateDir(dir))
	assert.Error(t, ValidateDir(t.TempDir()))
}

func TestValidateDirChecksVersionsAndSections(t *testing.T) {
	write := func(dir, name, body string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	ok := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"

	dir := t.TempDir()
	write(dir, "20261399000000_bad_month.sql", ok)
	assert.ErrorContains(t, ValidateDir(dir), "not a timestamp")

	dir = t.TempDir()
	write(dir, "20260101000000_a.sql", ok)
	write(dir, "20260101000000_b.sql", ok)
	assert.ErrorContains(t, ValidateDir(dir), "duplicate")

	dir = t.TempDir()
	write(dir, "20260101000000_swapped.sql", "-- +goose Down\n-- +goose Up\n")
	assert.ErrorContains(t, ValidateDir(dir), "precedes")

	dir = t.TempDir()
	write(dir, "20260101000000_fine.sql", ok)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644))
	assert.NoError(t, ValidateDir(dir))
}
