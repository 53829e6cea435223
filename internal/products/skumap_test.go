package products

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
)

type stubRepository struct {
	Repository

	mappings []models.ProductSKUMapping
	products []models.Product
}

func (s *stubRepository) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepository) FindSKUMappings(ctx context.Context, tenantID uuid.UUID, code enums.PlatformCode, skus []string) ([]models.ProductSKUMapping, error) {
	requested := map[string]bool{}
	for _, sku := range skus {
		requested[sku] = true
	}
	var out []models.ProductSKUMapping
	for _, m := range s.mappings {
		if requested[m.ExternalSKU] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	wanted := map[uuid.UUID]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.Product
	for _, p := range s.products {
		if wanted[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestResolveSKUsMapsEverySKU(t *testing.T) {
	tenantID := uuid.New()
	p1 := models.Product{ID: uuid.New(), TenantID: tenantID, Name: "Empanada"}
	p2 := models.Product{ID: uuid.New(), TenantID: tenantID, Name: "Milanesa"}
	repo := &stubRepository{
		mappings: []models.ProductSKUMapping{
			{TenantID: tenantID, PlatformCode: enums.PlatformRappi, ExternalSKU: "P1", ProductID: p1.ID},
			{TenantID: tenantID, PlatformCode: enums.PlatformRappi, ExternalSKU: "P2", ProductID: p2.ID},
		},
		products: []models.Product{p1, p2},
	}

	resolution, err := ResolveSKUs(context.Background(), repo, tenantID, enums.PlatformRappi, []string{"P1", "P2"})
	require.NoError(t, err)

	assert.Empty(t, resolution.Missing)
	require.Len(t, resolution.Products, 2)
	assert.Equal(t, "Empanada", resolution.Products["P1"].Name)
	assert.Equal(t, "Milanesa", resolution.Products["P2"].Name)
}

func TestResolveSKUsReportsMissing(t *testing.T) {
	tenantID := uuid.New()
	p1 := models.Product{ID: uuid.New(), TenantID: tenantID, Name: "Empanada"}
	repo := &stubRepository{
		mappings: []models.ProductSKUMapping{
			{TenantID: tenantID, PlatformCode: enums.PlatformRappi, ExternalSKU: "P1", ProductID: p1.ID},
		},
		products: []models.Product{p1},
	}

	resolution, err := ResolveSKUs(context.Background(), repo, tenantID, enums.PlatformRappi, []string{"P1", "GHOST"})
	require.NoError(t, err)

	assert.Equal(t, []string{"GHOST"}, resolution.Missing)
	assert.Len(t, resolution.Products, 1)
}

func TestResolveSKUsDanglingMappingIsIntegrityError(t *testing.T) {
	tenantID := uuid.New()
	repo := &stubRepository{
		mappings: []models.ProductSKUMapping{
			{TenantID: tenantID, PlatformCode: enums.PlatformRappi, ExternalSKU: "P1", ProductID: uuid.New()},
		},
	}

	_, err := ResolveSKUs(context.Background(), repo, tenantID, enums.PlatformRappi, []string{"P1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeIntegrity, pkgerrors.As(err).Code())
}

func TestResolveSKUsEmptyInput(t *testing.T) {
	resolution, err := ResolveSKUs(context.Background(), &stubRepository{}, uuid.New(), enums.PlatformRappi, nil)
	require.NoError(t, err)
	assert.Empty(t, resolution.Products)
	assert.Empty(t, resolution.Missing)
}
