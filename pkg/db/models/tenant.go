package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a restaurant operating on the platform. All order, stock and
// sequence rows hang off a tenant; nothing is shared across tenants.
type Tenant struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex"`
	Timezone    string     `gorm:"column:timezone;not null;default:'America/Argentina/Buenos_Aires'"`
	CutoffHour  int        `gorm:"column:cutoff_hour;not null;default:6"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	SuspendedAt *time.Time `gorm:"column:suspended_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
