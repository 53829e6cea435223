package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// OrderItem is the snapshot of a single line within an order. Name and
// UnitPrice are copied from the product at capture time so later catalog
// edits never rewrite history.
type OrderItem struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID *uuid.UUID            `gorm:"column:product_id;type:uuid"`
	Name      string                `gorm:"column:name;not null"`
	Quantity  int                   `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Total     decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	Status    enums.OrderItemStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Notes     *string               `gorm:"column:notes"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
