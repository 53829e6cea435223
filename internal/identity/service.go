package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/sequence"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Identifier is the complete identity of a new order: technical primary key,
// human-facing number and the business date both were derived from. The
// caller must persist BusinessDate exactly as returned; re-resolving it after
// allocation can cross the cutoff and detach the order from its sequence key.
type Identifier struct {
	ID           uuid.UUID
	OrderNumber  int64
	BusinessDate time.Time
	SequenceKey  string
}

// AllocateInput carries what identity allocation needs. LocalHour is the
// wall-clock hour in the tenant's timezone and only matters for hourly
// sharding.
type AllocateInput struct {
	TenantID     uuid.UUID
	BusinessDate time.Time
	LocalHour    int
}

// Service composes the sequence allocator into full order identities.
type Service struct {
	allocator *sequence.Allocator
	cfg       config.SequenceConfig
	logg      *logger.Logger
}

// NewService builds an identity service.
func NewService(allocator *sequence.Allocator, cfg config.SequenceConfig, logg *logger.Logger) (*Service, error) {
	if allocator == nil {
		return nil, fmt.Errorf("sequence allocator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{allocator: allocator, cfg: cfg, logg: logg}, nil
}

// Allocate generates the order identity inside the caller's transaction.
// With hourly sharding the display number embeds the hour block
// (hour*10000 + shard value) so numbers stay unique across the whole
// business day even though each shard counts from 1.
func (s *Service) Allocate(ctx context.Context, tx *gorm.DB, in AllocateInput) (*Identifier, error) {
	if in.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if in.BusinessDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business date required")
	}
	if in.LocalHour < 0 || in.LocalHour > 23 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local hour out of range")
	}

	id := uuid.New()
	if id.Version() != 4 || id.Variant() != uuid.RFC4122 {
		err := fmt.Errorf("generated uuid %s is not a v4/RFC4122 uuid", id)
		s.logg.Critical(ctx, "uuid generation produced a malformed identifier", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "order id generation")
	}

	start := time.Now()
	key := sequence.ShardKey(in.BusinessDate, in.LocalHour, s.cfg.ShardDaily())

	value, err := s.allocator.NextValue(ctx, tx, in.TenantID, key)
	if err != nil {
		return nil, err
	}

	orderNumber := value
	if !s.cfg.ShardDaily() {
		orderNumber = int64(in.LocalHour)*10000 + value
	}

	if s.cfg.DailyBound > 0 && value > s.cfg.DailyBound {
		err := fmt.Errorf("shard %s reached value %d, bound %d", key, value, s.cfg.DailyBound)
		s.logg.Critical(ctx, "sequence shard exceeded sane bound", err)
		if !s.cfg.ShardDaily() {
			// Past the bound the hour-block composition would collide with
			// the next hour's numbers.
			return nil, pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "order number space exhausted")
		}
	}

	auditCtx := s.logg.WithFields(ctx, map[string]any{
		"tenant_id":     in.TenantID.String(),
		"order_id":      id.String(),
		"sequence_key":  key,
		"order_number":  orderNumber,
		"business_date": in.BusinessDate.Format("2006-01-02"),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	s.logg.Info(auditCtx, "order identity allocated")

	return &Identifier{
		ID:           id,
		OrderNumber:  orderNumber,
		BusinessDate: in.BusinessDate,
		SequenceKey:  key,
	}, nil
}
