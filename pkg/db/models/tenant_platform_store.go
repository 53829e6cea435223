package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// TenantPlatformStore maps a platform's external store identifier to the
// tenant that owns it. Webhook routing depends on this row existing; an
// unmapped store id is a configuration error, never a silent default.
type TenantPlatformStore struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_platform_store,priority:3"`
	PlatformCode    enums.PlatformCode `gorm:"column:platform_code;type:text;not null;uniqueIndex:ux_platform_store,priority:1"`
	ExternalStoreID string             `gorm:"column:external_store_id;not null;uniqueIndex:ux_platform_store,priority:2"`
	AutoAccept      bool               `gorm:"column:auto_accept;not null;default:true"`
	Active          bool               `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
