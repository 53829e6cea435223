package businessdate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
)

// ShiftSource looks up the currently open shift for a tenant, if any.
type ShiftSource interface {
	FindOpenShift(ctx context.Context, tenantID uuid.UUID) (*models.Shift, error)
}

// Resolver maps wall-clock instants to business dates. A restaurant's day
// does not end at midnight: orders placed before the cutoff hour belong to
// the previous calendar day, and an open shift pins the date outright so a
// service that started before cutoff keeps its date past it.
type Resolver struct {
	defaultCutoffHour int
	shifts            ShiftSource
}

// NewResolver builds a Resolver. shifts may be nil when shift pinning is not
// wanted (the cutoff rule alone applies).
func NewResolver(defaultCutoffHour int, shifts ShiftSource) (*Resolver, error) {
	if defaultCutoffHour < 0 || defaultCutoffHour > 23 {
		return nil, fmt.Errorf("cutoff hour %d out of range", defaultCutoffHour)
	}
	return &Resolver{defaultCutoffHour: defaultCutoffHour, shifts: shifts}, nil
}

// Resolve returns the business date for the tenant at the given instant.
// The result is a midnight-UTC date value suitable for a DATE column.
func (r *Resolver) Resolve(ctx context.Context, tenant *models.Tenant, now time.Time) (time.Time, error) {
	if tenant == nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "tenant required")
	}

	if r.shifts != nil {
		shift, err := r.shifts.FindOpenShift(ctx, tenant.ID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open shift")
		}
		if shift != nil {
			return dateOnly(shift.BusinessDate), nil
		}
	}

	return r.ResolveWallClock(tenant, now)
}

// ResolveWallClock applies only the cutoff rule, ignoring any open shift.
// Shift opening uses this to compute the date the shift will pin.
func (r *Resolver) ResolveWallClock(tenant *models.Tenant, now time.Time) (time.Time, error) {
	if tenant == nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "tenant required")
	}
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant timezone")
	}
	local := now.In(loc)
	if local.Hour() < r.cutoffHourFor(tenant) {
		local = local.AddDate(0, 0, -1)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
}

// CutoffHourFor returns the effective cutoff hour for the tenant.
func (r *Resolver) CutoffHourFor(tenant *models.Tenant) int {
	return r.cutoffHourFor(tenant)
}

func (r *Resolver) cutoffHourFor(tenant *models.Tenant) int {
	if tenant != nil && tenant.CutoffHour >= 0 && tenant.CutoffHour <= 23 {
		return tenant.CutoffHour
	}
	return r.defaultCutoffHour
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
