package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// ProductSKUMapping ties a platform-side SKU to an internal product so
// incoming delivery items can be resolved in one batched lookup.
type ProductSKUMapping struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_sku_mappings,priority:1"`
	PlatformCode enums.PlatformCode `gorm:"column:platform_code;type:text;not null;uniqueIndex:ux_sku_mappings,priority:2"`
	ExternalSKU  string             `gorm:"column:external_sku;not null;uniqueIndex:ux_sku_mappings,priority:3"`
	ProductID    uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
