package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable menu item. BasePrice is the POS price; delivery
// channels either carry an explicit DeliveryPrice or fall back to
// BasePrice times the tenant-configured DeliveryMarkup.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name           string           `gorm:"column:name;not null"`
	Category       string           `gorm:"column:category;not null"`
	BasePrice      decimal.Decimal  `gorm:"column:base_price;type:numeric(12,2);not null"`
	DeliveryPrice  *decimal.Decimal `gorm:"column:delivery_price;type:numeric(12,2)"`
	DeliveryMarkup *decimal.Decimal `gorm:"column:delivery_markup;type:numeric(6,4)"`
	TracksStock    bool             `gorm:"column:tracks_stock;not null;default:false"`
	Active         bool             `gorm:"column:active;not null;default:true"`
	Recipe         []RecipeLine     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
