package shifts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
)

// Repository is the persistence surface for cash shifts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, shift *models.Shift) (*models.Shift, error)
	FindOpenShift(ctx context.Context, tenantID uuid.UUID) (*models.Shift, error)
	Close(ctx context.Context, id uuid.UUID, closedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shifts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shift *models.Shift) (*models.Shift, error) {
	if err := r.db.WithContext(ctx).Create(shift).Error; err != nil {
		return nil, err
	}
	return shift, nil
}

func (r *repository) FindOpenShift(ctx context.Context, tenantID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND closed_at IS NULL", tenantID).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *repository) Close(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Shift{}).
		Where("id = ? AND closed_at IS NULL", id).
		Update("closed_at", closedAt).Error
}
