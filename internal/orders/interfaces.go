package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
)

// Repository is the persistence surface for orders. FindByExternalIDForUpdate
// takes an exclusive row lock and must be called inside a transaction; the
// lock is held until that transaction ends, covering the whole
// read-validate-write sequence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error

	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	FindByExternalIDForUpdate(ctx context.Context, tenantID uuid.UUID, externalID string) (*models.Order, error)
	ListByBusinessDate(ctx context.Context, tenantID uuid.UUID, businessDate time.Time) ([]models.Order, error)

	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
}
