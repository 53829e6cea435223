package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderSequence is the per-tenant, per-shard counter row behind order
// numbering. SequenceKey is the shard (e.g. "2026012514" for an hourly
// shard); the pair (tenant_id, sequence_key) is unique so a single
// ON CONFLICT upsert can atomically increment CurrentValue.
type OrderSequence struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_order_sequences_tenant_key,priority:1"`
	SequenceKey  string    `gorm:"column:sequence_key;not null;uniqueIndex:ux_order_sequences_tenant_key,priority:2"`
	CurrentValue int64     `gorm:"column:current_value;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
