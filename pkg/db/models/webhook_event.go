package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// WebhookEvent is the audit trail of every delivery-platform delivery we
// accepted past signature validation, including duplicates and rejects.
// It is append-only; dedup itself is enforced on the orders table.
type WebhookEvent struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     *uuid.UUID             `gorm:"column:tenant_id;type:uuid;index"`
	PlatformCode enums.PlatformCode     `gorm:"column:platform_code;type:text;not null"`
	EventType    enums.WebhookEventType `gorm:"column:event_type;type:text;not null"`
	ExternalID   string                 `gorm:"column:external_id;not null"`
	Outcome      string                 `gorm:"column:outcome;not null"`
	Detail       *string                `gorm:"column:detail"`
	Payload      []byte                 `gorm:"column:payload;type:jsonb"`
	ReceivedAt   time.Time              `gorm:"column:received_at;not null"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}
