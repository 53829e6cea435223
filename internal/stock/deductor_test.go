package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
)

func setupStockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS stock_items (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit TEXT NOT NULL,
  quantity NUMERIC NOT NULL DEFAULT 0,
  min_level NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, gdb.Exec(ddl).Error)
	return gdb
}

func seedStockItem(t *testing.T, gdb *gorm.DB, tenantID uuid.UUID, qty string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := gdb.Exec(`INSERT INTO stock_items (id, tenant_id, name, unit, quantity, min_level)
		VALUES (?, ?, 'harina', 'kg', ?, 0)`, id, tenantID, qty).Error
	require.NoError(t, err)
	return id
}

func stockQuantity(t *testing.T, gdb *gorm.DB, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var raw string
	require.NoError(t, gdb.Raw(`SELECT quantity FROM stock_items WHERE id = ?`, id).Scan(&raw).Error)
	return decimal.RequireFromString(raw)
}

func trackedProduct(itemID uuid.UUID, perUnit string) *models.Product {
	return &models.Product{
		ID:          uuid.New(),
		TracksStock: true,
		Recipe: []models.RecipeLine{
			{ID: uuid.New(), StockItemID: itemID, Quantity: decimal.RequireFromString(perUnit)},
		},
	}
}

func TestDeductConsumesRecipeQuantities(t *testing.T) {
	gdb := setupStockTestDB(t)
	tenantID := uuid.New()
	itemID := seedStockItem(t, gdb, tenantID, "10")
	product := trackedProduct(itemID, "0.5")
	deductor := NewDeductor()

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return deductor.Deduct(context.Background(), tx, product, 4)
	})
	require.NoError(t, err)

	// 4 units * 0.5 per unit = 2 consumed.
	assert.True(t, decimal.RequireFromString("8").Equal(stockQuantity(t, gdb, itemID)))
}

func TestDeductInsufficientStockFailsWithoutNegativeBalance(t *testing.T) {
	gdb := setupStockTestDB(t)
	tenantID := uuid.New()
	itemID := seedStockItem(t, gdb, tenantID, "1")
	product := trackedProduct(itemID, "0.5")
	deductor := NewDeductor()

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return deductor.Deduct(context.Background(), tx, product, 3)
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	// The guarded UPDATE matched no row, so the balance is untouched.
	assert.True(t, decimal.RequireFromString("1").Equal(stockQuantity(t, gdb, itemID)))
}

func TestDeductRollsBackWithTransaction(t *testing.T) {
	gdb := setupStockTestDB(t)
	tenantID := uuid.New()
	okItem := seedStockItem(t, gdb, tenantID, "10")
	lowItem := seedStockItem(t, gdb, tenantID, "0.1")
	deductor := NewDeductor()

	product := &models.Product{
		ID:          uuid.New(),
		TracksStock: true,
		Recipe: []models.RecipeLine{
			{ID: uuid.New(), StockItemID: okItem, Quantity: decimal.RequireFromString("1")},
			{ID: uuid.New(), StockItemID: lowItem, Quantity: decimal.RequireFromString("1")},
		},
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return deductor.Deduct(context.Background(), tx, product, 1)
	})
	require.Error(t, err)

	// The first line deducted inside the tx, but the rollback restored it.
	assert.True(t, decimal.RequireFromString("10").Equal(stockQuantity(t, gdb, okItem)))
	assert.True(t, decimal.RequireFromString("0.1").Equal(stockQuantity(t, gdb, lowItem)))
}

func TestDeductSkipsUntrackedProducts(t *testing.T) {
	gdb := setupStockTestDB(t)
	tenantID := uuid.New()
	itemID := seedStockItem(t, gdb, tenantID, "10")
	deductor := NewDeductor()

	product := trackedProduct(itemID, "1")
	product.TracksStock = false

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return deductor.Deduct(context.Background(), tx, product, 5)
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10").Equal(stockQuantity(t, gdb, itemID)))
}

func TestDeductRequiresTransaction(t *testing.T) {
	deductor := NewDeductor()
	err := deductor.Deduct(context.Background(), nil, trackedProduct(uuid.New(), "1"), 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())
}

func TestRestockReturnsQuantities(t *testing.T) {
	gdb := setupStockTestDB(t)
	tenantID := uuid.New()
	itemID := seedStockItem(t, gdb, tenantID, "5")
	product := trackedProduct(itemID, "0.5")
	deductor := NewDeductor()

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return deductor.Restock(context.Background(), tx, product, 4)
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("7").Equal(stockQuantity(t, gdb, itemID)))
}

func TestLowStockListsDepletedItems(t *testing.T) {
	gdb := setupStockTestDB(t)
	tenantID := uuid.New()

	low := uuid.New()
	require.NoError(t, gdb.Exec(`INSERT INTO stock_items (id, tenant_id, name, unit, quantity, min_level)
		VALUES (?, ?, 'carne', 'kg', 2, 5)`, low, tenantID).Error)
	require.NoError(t, gdb.Exec(`INSERT INTO stock_items (id, tenant_id, name, unit, quantity, min_level)
		VALUES (?, ?, 'queso', 'kg', 20, 5)`, uuid.New(), tenantID).Error)

	items, err := LowStock(context.Background(), gdb, tenantID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "carne", items[0].Name)
}
