package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockItem is a tracked ingredient or supply. Quantity moves only inside
// order transactions so a failed insert never leaves a phantom deduction.
type StockItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Unit      string          `gorm:"column:unit;not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(14,4);not null;default:0"`
	MinLevel  decimal.Decimal `gorm:"column:min_level;type:numeric(14,4);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// RecipeLine links a product to the stock it consumes per unit sold.
type RecipeLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	StockItemID uuid.UUID       `gorm:"column:stock_item_id;type:uuid;not null"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(14,4);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
