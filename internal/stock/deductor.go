package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
)

// Deductor consumes ingredient stock for sold products. Every deduction runs
// inside the caller's order transaction: if any line fails, the whole order
// rolls back and no partial decrement survives.
type Deductor struct{}

// NewDeductor builds a Deductor.
func NewDeductor() *Deductor {
	return &Deductor{}
}

// Deduct consumes stock for qty units of the product according to its
// recipe. Products without a recipe or with stock tracking disabled are a
// no-op. The guarded UPDATE only matches rows with enough quantity, so
// insufficient stock surfaces as a zero-row update instead of a negative
// balance.
func (d *Deductor) Deduct(ctx context.Context, tx *gorm.DB, product *models.Product, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stock deduction requires a transaction")
	}
	if product == nil || !product.TracksStock || qty <= 0 {
		return nil
	}

	for _, line := range product.Recipe {
		required := line.Quantity.Mul(decimal.NewFromInt(int64(qty)))
		res := tx.WithContext(ctx).Exec(`
			UPDATE stock_items
			SET quantity = quantity - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND quantity >= ?
		`, required, line.StockItemID, required)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deduct stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("insufficient stock for item %s (need %s)", line.StockItemID, required))
		}
	}
	return nil
}

// Restock returns stock for qty units of the product, used when an order is
// cancelled after deduction.
func (d *Deductor) Restock(ctx context.Context, tx *gorm.DB, product *models.Product, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "restock requires a transaction")
	}
	if product == nil || !product.TracksStock || qty <= 0 {
		return nil
	}

	for _, line := range product.Recipe {
		returned := line.Quantity.Mul(decimal.NewFromInt(int64(qty)))
		res := tx.WithContext(ctx).Exec(`
			UPDATE stock_items
			SET quantity = quantity + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, returned, line.StockItemID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock")
		}
	}
	return nil
}

// LowStock lists tracked items at or below their configured minimum.
func LowStock(ctx context.Context, db *gorm.DB, tenantID uuid.UUID) ([]models.StockItem, error) {
	var items []models.StockItem
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND quantity <= min_level", tenantID).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
