package shifts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/businessdate"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/tenants"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Service manages cash shifts. An open shift pins the business date for all
// orders the tenant creates until it closes.
type Service struct {
	repo     Repository
	tenants  tenants.Repository
	resolver *businessdate.Resolver
	logg     *logger.Logger
}

// NewService builds a shifts service.
func NewService(repo Repository, tenantRepo tenants.Repository, resolver *businessdate.Resolver, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shifts repository required")
	}
	if tenantRepo == nil {
		return nil, fmt.Errorf("tenants repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("business date resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, tenants: tenantRepo, resolver: resolver, logg: logg}, nil
}

// Open starts a shift pinned to the wall-clock business date at open time.
// The partial unique index on open shifts rejects a second concurrent open.
func (s *Service) Open(ctx context.Context, tenantID uuid.UUID, openedBy string, now time.Time) (*models.Shift, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if openedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opened_by required")
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}

	businessDate, err := s.resolver.ResolveWallClock(tenant, now)
	if err != nil {
		return nil, err
	}

	shift := &models.Shift{
		ID:           uuid.New(),
		TenantID:     tenantID,
		BusinessDate: businessDate,
		OpenedBy:     openedBy,
		OpenedAt:     now,
	}
	created, err := s.repo.Create(ctx, shift)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "open shift")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"tenant_id":     tenantID.String(),
		"shift_id":      created.ID.String(),
		"business_date": businessDate.Format("2006-01-02"),
	})
	s.logg.Info(ctx, "shift opened")
	return created, nil
}

// Close ends the tenant's open shift.
func (s *Service) Close(ctx context.Context, tenantID uuid.UUID, now time.Time) (*models.Shift, error) {
	shift, err := s.repo.FindOpenShift(ctx, tenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open shift")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open shift")
	}
	if err := s.repo.Close(ctx, shift.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close shift")
	}
	closedAt := now
	shift.ClosedAt = &closedAt

	ctx = s.logg.WithFields(ctx, map[string]any{
		"tenant_id": tenantID.String(),
		"shift_id":  shift.ID.String(),
	})
	s.logg.Info(ctx, "shift closed")
	return shift, nil
}
