package tenants

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

type stubRepository struct {
	Repository

	tenants map[uuid.UUID]*models.Tenant
	stores  map[string]*models.TenantPlatformStore
}

func (s *stubRepository) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if tenant, ok := s.tenants[id]; ok {
		return tenant, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepository) FindPlatformStore(ctx context.Context, code enums.PlatformCode, externalStoreID string) (*models.TenantPlatformStore, error) {
	if store, ok := s.stores[code.String()+"/"+externalStoreID]; ok {
		return store, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testTenantsService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func TestResolvePlatformStoreHappyPath(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Name: "La Esquina", Active: true}
	store := &models.TenantPlatformStore{
		ID:              uuid.New(),
		TenantID:        tenant.ID,
		PlatformCode:    enums.PlatformRappi,
		ExternalStoreID: "store-77",
		AutoAccept:      true,
		Active:          true,
	}
	svc := testTenantsService(t, &stubRepository{
		tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant},
		stores:  map[string]*models.TenantPlatformStore{"RAPPI/store-77": store},
	})

	gotTenant, gotStore, err := svc.ResolvePlatformStore(context.Background(), enums.PlatformRappi, "store-77")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, gotTenant.ID)
	assert.True(t, gotStore.AutoAccept)
}

func TestResolvePlatformStoreUnmappedStoreFailsLoudly(t *testing.T) {
	svc := testTenantsService(t, &stubRepository{})

	_, _, err := svc.ResolvePlatformStore(context.Background(), enums.PlatformRappi, "ghost-store")
	require.Error(t, err)
	// The order must never be attributed to a guessed tenant.
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestResolvePlatformStoreDanglingTenant(t *testing.T) {
	store := &models.TenantPlatformStore{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		PlatformCode:    enums.PlatformRappi,
		ExternalStoreID: "store-77",
		Active:          true,
	}
	svc := testTenantsService(t, &stubRepository{
		stores: map[string]*models.TenantPlatformStore{"RAPPI/store-77": store},
	})

	_, _, err := svc.ResolvePlatformStore(context.Background(), enums.PlatformRappi, "store-77")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeIntegrity, pkgerrors.As(err).Code())
}

func TestResolvePlatformStoreSuspendedTenant(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Name: "La Esquina", Active: false}
	store := &models.TenantPlatformStore{
		ID:              uuid.New(),
		TenantID:        tenant.ID,
		PlatformCode:    enums.PlatformRappi,
		ExternalStoreID: "store-77",
		Active:          true,
	}
	svc := testTenantsService(t, &stubRepository{
		tenants: map[uuid.UUID]*models.Tenant{tenant.ID: tenant},
		stores:  map[string]*models.TenantPlatformStore{"RAPPI/store-77": store},
	})

	_, _, err := svc.ResolvePlatformStore(context.Background(), enums.PlatformRappi, "store-77")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestResolvePlatformStoreEmptyStoreID(t *testing.T) {
	svc := testTenantsService(t, &stubRepository{})

	_, _, err := svc.ResolvePlatformStore(context.Background(), enums.PlatformRappi, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
