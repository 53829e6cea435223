package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/businessdate"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/identity"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/products"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/stock"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/tenants"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type kitchenNotifier interface {
	OrderCreated(ctx context.Context, order *models.Order)
	OrderUpdated(ctx context.Context, order *models.Order)
}

// CreateOrderItemInput is one requested line on a staff-created order.
type CreateOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Notes     *string
}

// CreateOrderInput captures a POS or waiter order request.
type CreateOrderInput struct {
	TenantID      uuid.UUID
	Channel       enums.OrderChannel
	Items         []CreateOrderItemInput
	TableNumber   *int
	CustomerName  *string
	CustomerPhone *string
	Notes         *string
	Discount      decimal.Decimal
}

// TransitionInput moves an order to a new status.
type TransitionInput struct {
	TenantID uuid.UUID
	OrderID  uuid.UUID
	Target   enums.OrderStatus
	Reason   *string
}

// ServiceParams collects the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Tenants  tenants.Repository
	Products products.Repository
	Resolver *businessdate.Resolver
	Identity *identity.Service
	Stock    *stock.Deductor
	Kitchen  kitchenNotifier
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// Service drives staff-facing order operations: creation from the counter or
// a waiter device, status transitions and item progress.
type Service struct {
	repo        Repository
	tx          txRunner
	tenantsRepo tenants.Repository
	productRepo products.Repository
	resolver    *businessdate.Resolver
	identity    *identity.Service
	stock       *stock.Deductor
	kitchen     kitchenNotifier
	metrics     *metrics.Metrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds an orders service.
func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Tenants == nil {
		return nil, fmt.Errorf("tenants repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if p.Resolver == nil {
		return nil, fmt.Errorf("business date resolver required")
	}
	if p.Identity == nil {
		return nil, fmt.Errorf("identity service required")
	}
	if p.Stock == nil {
		return nil, fmt.Errorf("stock deductor required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:        p.Repo,
		tx:          p.Tx,
		tenantsRepo: p.Tenants,
		productRepo: p.Products,
		resolver:    p.Resolver,
		identity:    p.Identity,
		stock:       p.Stock,
		kitchen:     p.Kitchen,
		metrics:     p.Metrics,
		logg:        p.Logger,
		now:         now,
	}, nil
}

// Create allocates an identity and persists the order with its items and
// stock deductions in one transaction.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if !input.Channel.IsValid() || input.Channel == enums.OrderChannelDeliveryApp {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel must be POS or WAITER")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every item requires a product and a positive quantity")
		}
	}

	tenant, err := s.tenantsRepo.FindByID(ctx, input.TenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}

	now := s.now()
	// Resolved exactly once; the identifier and the order row must agree on
	// the date even if the clock crosses the cutoff mid-transaction.
	businessDate, err := s.resolver.Resolve(ctx, tenant, now)
	if err != nil {
		return nil, err
	}
	localHour, err := localHourFor(tenant, now)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	productRows, err := s.productRepo.FindByIDs(ctx, input.TenantID, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := map[uuid.UUID]*models.Product{}
	for i := range productRows {
		byID[productRows[i].ID] = &productRows[i]
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ident, err := s.identity.Allocate(ctx, tx, identity.AllocateInput{
			TenantID:     input.TenantID,
			BusinessDate: businessDate,
			LocalHour:    localHour,
		})
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:            ident.ID,
			TenantID:      input.TenantID,
			OrderNumber:   ident.OrderNumber,
			BusinessDate:  ident.BusinessDate,
			Channel:       input.Channel,
			Status:        enums.OrderStatusOpen,
			PaymentStatus: enums.PaymentStatusPending,
			TableNumber:   input.TableNumber,
			CustomerName:  input.CustomerName,
			CustomerPhone: input.CustomerPhone,
			Notes:         input.Notes,
			Discount:      input.Discount,
		}

		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			product, ok := byID[line.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
			}
			if !product.Active {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is inactive", product.Name))
			}
			unitPrice := products.PriceForChannel(product, input.Channel)
			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			subtotal = subtotal.Add(lineTotal)

			productID := product.ID
			items = append(items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: &productID,
				Name:      product.Name,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
				Total:     lineTotal,
				Status:    enums.OrderItemStatusPending,
				Notes:     line.Notes,
			})

			if err := s.stock.Deduct(ctx, tx, product, line.Quantity); err != nil {
				return err
			}
		}

		order.Subtotal = subtotal
		order.Total = subtotal.Sub(input.Discount)
		if order.Total.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds subtotal")
		}

		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOrderCreated(input.Channel.String())
	}
	if s.kitchen != nil {
		s.kitchen.OrderCreated(ctx, created)
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"tenant_id":    input.TenantID.String(),
		"order_id":     created.ID.String(),
		"order_number": created.OrderNumber,
		"channel":      input.Channel.String(),
	})
	s.logg.Info(ctx, "order created")
	return created, nil
}

// Transition moves an order to the target status under an exclusive row
// lock. Same-status requests are idempotent no-ops; illegal edges surface a
// state-conflict error without touching the row.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.TenantID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and order ids required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown target status %q", input.Target))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, input.TenantID, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if order.Status == input.Target {
			updated = order
			return nil
		}
		if err := GuardTransition(order.Status, input.Target); err != nil {
			if s.metrics != nil {
				s.metrics.IncTransitionRejected(order.Status.String(), input.Target.String())
			}
			return err
		}

		updates := transitionUpdates(input.Target, input.Reason, s.now())
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		applyTransition(order, input.Target, input.Reason, s.now())
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.kitchen != nil {
		s.kitchen.OrderUpdated(ctx, updated)
	}
	return updated, nil
}

// UpdateItemStatus progresses one kitchen line.
func (s *Service) UpdateItemStatus(ctx context.Context, tenantID, orderID, itemID uuid.UUID, target enums.OrderItemStatus) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown item status %q", target))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, tenantID, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot progress items")
		}

		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		for _, item := range items {
			if item.ID == itemID {
				return repo.UpdateItemStatus(ctx, itemID, map[string]any{"status": target})
			}
		}
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found on order")
	})
}

// Get loads an order with its items.
func (s *Service) Get(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, tenantID, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ListByBusinessDate returns a tenant's orders for one business day.
func (s *Service) ListByBusinessDate(ctx context.Context, tenantID uuid.UUID, businessDate time.Time) ([]models.Order, error) {
	orders, err := s.repo.ListByBusinessDate(ctx, tenantID, businessDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func transitionUpdates(target enums.OrderStatus, reason *string, now time.Time) map[string]any {
	updates := map[string]any{"status": target}
	switch target {
	case enums.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		if reason != nil {
			updates["cancel_reason"] = *reason
		}
	}
	return updates
}

func applyTransition(order *models.Order, target enums.OrderStatus, reason *string, now time.Time) {
	order.Status = target
	switch target {
	case enums.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
		order.CancelReason = reason
	}
}

func localHourFor(tenant *models.Tenant, now time.Time) (int, error) {
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant timezone")
	}
	return now.In(loc).Hour(), nil
}
