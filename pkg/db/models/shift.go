package models

import (
	"time"

	"github.com/google/uuid"
)

// Shift is an operator-opened cash session. An open shift may pin the
// business date for orders created while it runs, overriding the cutoff
// rule for services that straddle the cutoff hour.
type Shift struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index"`
	BusinessDate time.Time  `gorm:"column:business_date;type:date;not null"`
	OpenedBy     string     `gorm:"column:opened_by;not null"`
	OpenedAt     time.Time  `gorm:"column:opened_at;not null"`
	ClosedAt     *time.Time `gorm:"column:closed_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
