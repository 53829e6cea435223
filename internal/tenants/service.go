package tenants

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Service resolves tenants for webhook routing. Resolution failures are loud:
// a webhook for an unmapped store must never be attributed to a guessed
// tenant, that would leak one restaurant's orders into another's books.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a tenants service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tenants repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// ResolvePlatformStore returns the tenant and store mapping owning the
// platform's external store id.
func (s *Service) ResolvePlatformStore(ctx context.Context, code enums.PlatformCode, externalStoreID string) (*models.Tenant, *models.TenantPlatformStore, error) {
	if externalStoreID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "external store id required")
	}

	store, err := s.repo.FindPlatformStore(ctx, code, externalStoreID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx = s.logg.WithFields(ctx, map[string]any{
				"platform":          code.String(),
				"external_store_id": externalStoreID,
			})
			s.logg.Error(ctx, "webhook store id not mapped to any tenant", err)
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no tenant mapped for %s store %s", code, externalStoreID))
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve platform store")
	}

	tenant, err := s.repo.FindByID(ctx, store.TenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeIntegrity, "platform store maps to a missing tenant")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	if !tenant.Active {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant is suspended")
	}
	return tenant, store, nil
}
