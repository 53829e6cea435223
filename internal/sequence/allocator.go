package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/metrics"
)

// The allocator is a single-row upsert against the shard counter. The
// increment happens entirely inside the database, so two concurrent callers
// for the same (tenant, key) serialize on the row lock and each observes a
// distinct value. ON CONFLICT targets the unique index on
// (tenant_id, sequence_key).
const nextValueSQL = `
INSERT INTO order_sequences (id, tenant_id, sequence_key, current_value, created_at, updated_at)
VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT (tenant_id, sequence_key)
DO UPDATE SET current_value = order_sequences.current_value + 1, updated_at = CURRENT_TIMESTAMP
RETURNING current_value`

const savepointName = "seq_alloc"

// Allocator issues monotonically increasing values per (tenant, sequenceKey)
// shard. It must run inside the caller's transaction: the issued number is
// only durable if the caller commits, and a rollback reuses nothing because
// the increment rolls back with it.
type Allocator struct {
	cfg     config.SequenceConfig
	logg    *logger.Logger
	metrics *metrics.Metrics
}

// NewAllocator builds an Allocator with the configured retry policy.
func NewAllocator(cfg config.SequenceConfig, logg *logger.Logger, m *metrics.Metrics) (*Allocator, error) {
	if cfg.RetryAttempts < 1 {
		return nil, fmt.Errorf("retry attempts must be at least 1")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Allocator{cfg: cfg, logg: logg, metrics: m}, nil
}

// NextValue returns the next value for the shard, retrying transient lock
// contention with exponential backoff. Integrity violations fail immediately;
// running out of attempts surfaces a retryable lock-timeout error so the
// job queue can redeliver.
func (a *Allocator) NextValue(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, sequenceKey string) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "allocator requires a transaction")
	}
	if tenantID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if sequenceKey == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "sequence key required")
	}

	ctx = a.logg.WithFields(ctx, map[string]any{
		"tenant_id":    tenantID.String(),
		"sequence_key": sequenceKey,
	})

	start := time.Now()
	wait := a.cfg.RetryBaseWait
	var lastErr error

	for attempt := 1; attempt <= a.cfg.RetryAttempts; attempt++ {
		tx.SavePoint(savepointName)

		var value int64
		err := tx.WithContext(ctx).Raw(nextValueSQL, uuid.New(), tenantID, sequenceKey).Scan(&value).Error
		if err == nil {
			a.observe(ctx, sequenceKey, value, attempt, time.Since(start))
			return value, nil
		}

		if db.IsUniqueViolation(err, "") && !db.IsRetryableContention(err) {
			// The upsert should absorb key collisions; a surviving unique
			// violation means the constraint set drifted from the query.
			return 0, pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "sequence upsert integrity violation")
		}
		if !db.IsRetryableContention(err) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sequence upsert")
		}

		lastErr = err
		tx.RollbackTo(savepointName)
		if a.metrics != nil {
			a.metrics.IncAllocationRetry(sequenceKey)
		}
		warnCtx := a.logg.WithField(ctx, "cause", err.Error())
		a.logg.Warn(warnCtx, fmt.Sprintf("sequence allocation contention, attempt %d/%d", attempt, a.cfg.RetryAttempts))

		if attempt == a.cfg.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "sequence allocation cancelled")
		case <-time.After(wait):
		}
		wait *= 2
	}

	if a.metrics != nil {
		a.metrics.IncAllocationExhausted(sequenceKey)
	}
	return 0, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, lastErr, "sequence allocation retries exhausted")
}

func (a *Allocator) observe(ctx context.Context, sequenceKey string, value int64, attempt int, elapsed time.Duration) {
	if a.metrics != nil {
		a.metrics.ObserveAllocation(sequenceKey, elapsed)
	}
	ctx = a.logg.WithFields(ctx, map[string]any{
		"value":      value,
		"attempt":    attempt,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if a.cfg.SlowThreshold > 0 && elapsed > a.cfg.SlowThreshold {
		a.logg.Warn(ctx, "slow sequence allocation")
		return
	}
	a.logg.Info(ctx, "sequence value allocated")
}
