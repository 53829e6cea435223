package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// DeliveryPlatform is a row per supported integration (RAPPI, PEDIDOSYA).
// The table mirrors the closed adapter set; rows are seeded by migration.
type DeliveryPlatform struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      enums.PlatformCode `gorm:"column:code;type:text;not null;uniqueIndex"`
	Name      string             `gorm:"column:name;not null"`
	Active    bool               `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
