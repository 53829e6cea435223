package tenants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// Repository is the persistence surface for tenants and their platform store
// mappings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	FindPlatformStore(ctx context.Context, code enums.PlatformCode, externalStoreID string) (*models.TenantPlatformStore, error)
	FindPlatform(ctx context.Context, code enums.PlatformCode) (*models.DeliveryPlatform, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tenants repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) FindPlatformStore(ctx context.Context, code enums.PlatformCode, externalStoreID string) (*models.TenantPlatformStore, error) {
	var store models.TenantPlatformStore
	err := r.db.WithContext(ctx).
		Where("platform_code = ? AND external_store_id = ? AND active = ?", code, externalStoreID, true).
		First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindPlatform(ctx context.Context, code enums.PlatformCode) (*models.DeliveryPlatform, error) {
	var platform models.DeliveryPlatform
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&platform).Error
	if err != nil {
		return nil, err
	}
	return &platform, nil
}
