package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// Repository is the persistence surface for the product catalog and SKU
// mappings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error)
	FindSKUMappings(ctx context.Context, tenantID uuid.UUID, code enums.PlatformCode, skus []string) ([]models.ProductSKUMapping, error)
	ListSKUMappings(ctx context.Context, tenantID uuid.UUID, code enums.PlatformCode) ([]models.ProductSKUMapping, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Recipe").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var productRows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Recipe").
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&productRows).Error
	if err != nil {
		return nil, err
	}
	return productRows, nil
}

func (r *repository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	var productRows []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("category ASC, name ASC").
		Find(&productRows).Error
	if err != nil {
		return nil, err
	}
	return productRows, nil
}

// FindSKUMappings resolves the whole SKU batch in one query; the ingestion
// path must stay O(1) round trips regardless of cart size.
func (r *repository) FindSKUMappings(ctx context.Context, tenantID uuid.UUID, code enums.PlatformCode, skus []string) ([]models.ProductSKUMapping, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var mappings []models.ProductSKUMapping
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform_code = ? AND external_sku IN ?", tenantID, code, skus).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

func (r *repository) ListSKUMappings(ctx context.Context, tenantID uuid.UUID, code enums.PlatformCode) ([]models.ProductSKUMapping, error) {
	var mappings []models.ProductSKUMapping
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND platform_code = ?", tenantID, code).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}
