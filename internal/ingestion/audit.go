package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Outcomes recorded in the webhook audit trail.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeNoop      = "noop"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Recorder appends webhook processing outcomes to the audit trail. Writes are
// best-effort: an audit failure is logged and never fails the pipeline.
type Recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewRecorder builds an audit recorder.
func NewRecorder(db *gorm.DB, logg *logger.Logger) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Recorder{db: db, logg: logg}, nil
}

// Record writes one audit row.
func (r *Recorder) Record(ctx context.Context, entry AuditEntry) {
	row := models.WebhookEvent{
		ID:           uuid.New(),
		TenantID:     entry.TenantID,
		PlatformCode: entry.Platform,
		EventType:    entry.EventType,
		ExternalID:   entry.ExternalID,
		Outcome:      entry.Outcome,
		Payload:      entry.Payload,
		ReceivedAt:   entry.ReceivedAt,
	}
	if entry.Detail != "" {
		detail := entry.Detail
		row.Detail = &detail
	}
	if row.ReceivedAt.IsZero() {
		row.ReceivedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		auditCtx := r.logg.WithFields(ctx, map[string]any{
			"platform":    entry.Platform.String(),
			"external_id": entry.ExternalID,
			"outcome":     entry.Outcome,
		})
		r.logg.Error(auditCtx, "failed to write webhook audit row", err)
	}
}

// AuditEntry is one webhook outcome to persist.
type AuditEntry struct {
	TenantID   *uuid.UUID
	Platform   enums.PlatformCode
	EventType  enums.WebhookEventType
	ExternalID string
	Outcome    string
	Detail     string
	Payload    []byte
	ReceivedAt time.Time
}
