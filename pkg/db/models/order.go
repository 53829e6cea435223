package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// Order is the unified order record for every channel (POS, waiter,
// delivery apps). OrderNumber is the human-facing sequential number,
// unique per tenant within a business date; ExternalID carries the
// platform's order id for delivery orders and backs webhook dedup via
// the partial unique index on (tenant_id, external_id).
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrderNumber   int64               `gorm:"column:order_number;not null"`
	BusinessDate  time.Time           `gorm:"column:business_date;type:date;not null"`
	Channel       enums.OrderChannel  `gorm:"column:channel;type:text;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'OPEN'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	PlatformCode  *enums.PlatformCode `gorm:"column:platform_code;type:text"`
	ExternalID    *string             `gorm:"column:external_id"`
	ShiftID       *uuid.UUID          `gorm:"column:shift_id;type:uuid"`
	TableNumber   *int                `gorm:"column:table_number"`
	CustomerName  *string             `gorm:"column:customer_name"`
	CustomerPhone *string             `gorm:"column:customer_phone"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	DeliveryFee   decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Notes         *string             `gorm:"column:notes"`
	CancelReason  *string             `gorm:"column:cancel_reason"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt   *time.Time          `gorm:"column:confirmed_at"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
