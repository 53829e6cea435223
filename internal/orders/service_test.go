package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/businessdate"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/identity"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/products"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/sequence"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/stock"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/tenants"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS tenants (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  timezone TEXT NOT NULL,
  cutoff_hour INTEGER NOT NULL DEFAULT 6,
  active INTEGER NOT NULL DEFAULT 1,
  suspended_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  base_price NUMERIC NOT NULL,
  delivery_price NUMERIC,
  delivery_markup NUMERIC,
  tracks_stock INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS recipe_lines (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  stock_item_id TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS stock_items (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit TEXT NOT NULL,
  quantity NUMERIC NOT NULL DEFAULT 0,
  min_level NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_sequences (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  sequence_key TEXT NOT NULL,
  current_value INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_order_sequences_tenant_key
  ON order_sequences (tenant_id, sequence_key);
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_number INTEGER NOT NULL,
  business_date DATE NOT NULL,
  channel TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'OPEN',
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  platform_code TEXT,
  external_id TEXT,
  shift_id TEXT,
  table_number INTEGER,
  customer_name TEXT,
  customer_phone TEXT,
  subtotal NUMERIC NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0,
  delivery_fee NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  notes TEXT,
  cancel_reason TEXT,
  confirmed_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_tenant_external
  ON orders (tenant_id, external_id) WHERE external_id IS NOT NULL;
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, gdb.Exec(ddl).Error)
	return gdb
}

type serviceTxRunner struct {
	db *gorm.DB
}

func (r *serviceTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// unlockedRepo swaps the FOR UPDATE lookups for plain queries; sqlite has no
// row locks and rejects the locking clause outright.
type unlockedRepo struct {
	Repository
	db *gorm.DB
}

func (r unlockedRepo) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return unlockedRepo{Repository: r.Repository.WithTx(tx), db: tx}
}

func (r unlockedRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r unlockedRepo) FindByExternalIDForUpdate(ctx context.Context, tenantID uuid.UUID, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND external_id = ?", tenantID, externalID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type capturedKitchen struct {
	created []uuid.UUID
	updated []uuid.UUID
}

func (k *capturedKitchen) OrderCreated(ctx context.Context, order *models.Order) {
	k.created = append(k.created, order.ID)
}

func (k *capturedKitchen) OrderUpdated(ctx context.Context, order *models.Order) {
	k.updated = append(k.updated, order.ID)
}

type serviceFixture struct {
	db      *gorm.DB
	svc     *Service
	kitchen *capturedKitchen
	tenant  *models.Tenant
	pizza   *models.Product
	drink   *models.Product
	stockID uuid.UUID
}

var serviceNow = time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)

func setupOrdersService(t *testing.T) *serviceFixture {
	t.Helper()

	gdb := setupOrdersTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test"})

	tenant := &models.Tenant{
		ID:         uuid.New(),
		Name:       "Don Mario",
		Slug:       "don-mario-" + uuid.NewString()[:8],
		Timezone:   "UTC",
		CutoffHour: 6,
		Active:     true,
	}
	require.NoError(t, gdb.Create(tenant).Error)

	stockID := uuid.New()
	require.NoError(t, gdb.Exec(`INSERT INTO stock_items (id, tenant_id, name, unit, quantity, min_level)
		VALUES (?, ?, 'muzzarella', 'kg', 10, 0)`, stockID, tenant.ID).Error)

	pizza := &models.Product{
		ID:          uuid.New(),
		TenantID:    tenant.ID,
		Name:        "Pizza muzzarella",
		Category:    "Pizzas",
		BasePrice:   decimal.RequireFromString("2500"),
		TracksStock: true,
		Active:      true,
		Recipe: []models.RecipeLine{
			{ID: uuid.New(), StockItemID: stockID, Quantity: decimal.RequireFromString("0.5")},
		},
	}
	require.NoError(t, gdb.Create(pizza).Error)

	drink := &models.Product{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Name:      "Gaseosa",
		Category:  "Bebidas",
		BasePrice: decimal.RequireFromString("800"),
		Active:    true,
	}
	require.NoError(t, gdb.Create(drink).Error)

	seqCfg := config.SequenceConfig{
		Shard:         "hourly",
		RetryAttempts: 3,
		RetryBaseWait: time.Millisecond,
		DailyBound:    9999,
	}
	alloc, err := sequence.NewAllocator(seqCfg, logg, nil)
	require.NoError(t, err)
	identitySvc, err := identity.NewService(alloc, seqCfg, logg)
	require.NoError(t, err)

	resolver, err := businessdate.NewResolver(6, nil)
	require.NoError(t, err)

	kitchen := &capturedKitchen{}
	svc, err := NewService(ServiceParams{
		Repo:     unlockedRepo{Repository: NewRepository(gdb), db: gdb},
		Tx:       &serviceTxRunner{db: gdb},
		Tenants:  tenants.NewRepository(gdb),
		Products: products.NewRepository(gdb),
		Resolver: resolver,
		Identity: identitySvc,
		Stock:    stock.NewDeductor(),
		Kitchen:  kitchen,
		Logger:   logg,
		Now:      func() time.Time { return serviceNow },
	})
	require.NoError(t, err)

	return &serviceFixture{
		db:      gdb,
		svc:     svc,
		kitchen: kitchen,
		tenant:  tenant,
		pizza:   pizza,
		drink:   drink,
		stockID: stockID,
	}
}

func (fx *serviceFixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, fx.db.Model(&models.Order{}).Where("tenant_id = ?", fx.tenant.ID).Count(&count).Error)
	return count
}

func (fx *serviceFixture) itemCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, fx.db.Raw(`SELECT COUNT(*) FROM order_items
		WHERE order_id IN (SELECT id FROM orders WHERE tenant_id = ?)`, fx.tenant.ID).Scan(&count).Error)
	return count
}

func (fx *serviceFixture) stockQuantity(t *testing.T) decimal.Decimal {
	t.Helper()
	var raw string
	require.NoError(t, fx.db.Raw(`SELECT quantity FROM stock_items WHERE id = ?`, fx.stockID).Scan(&raw).Error)
	return decimal.RequireFromString(raw)
}

func posOrder(fx *serviceFixture, lines ...CreateOrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		TenantID: fx.tenant.ID,
		Channel:  enums.OrderChannelPOS,
		Items:    lines,
	}
}

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	fx := setupOrdersService(t)

	first, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.pizza.ID, Quantity: 2},
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.NoError(t, err)
	second, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 2},
	))
	require.NoError(t, err)

	// Hour 13, first and second order of that shard.
	assert.Equal(t, int64(130001), first.OrderNumber)
	assert.Equal(t, int64(130002), second.OrderNumber)

	assert.Equal(t, enums.OrderChannelPOS, first.Channel)
	assert.Equal(t, enums.OrderStatusOpen, first.Status)
	assert.Equal(t, enums.PaymentStatusPending, first.PaymentStatus)
	// POS lines snapshot the base price: 2*2500 + 800.
	assert.True(t, decimal.RequireFromString("5800").Equal(first.Subtotal))
	assert.True(t, decimal.RequireFromString("5800").Equal(first.Total))

	// 2 pizzas * 0.5 kg each.
	assert.True(t, decimal.RequireFromString("9").Equal(fx.stockQuantity(t)))
	assert.Len(t, fx.kitchen.created, 2)
}

func TestCreateInsufficientStockLeavesNothingBehind(t *testing.T) {
	fx := setupOrdersService(t)

	// 30 pizzas need 15 kg; only 10 are on hand.
	_, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
		CreateOrderItemInput{ProductID: fx.pizza.ID, Quantity: 30},
	))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	// The whole transaction rolled back: no order row, no item rows, stock
	// untouched, nothing reached the kitchen.
	assert.Zero(t, fx.orderCount(t))
	assert.Zero(t, fx.itemCount(t))
	assert.True(t, decimal.RequireFromString("10").Equal(fx.stockQuantity(t)))
	assert.Empty(t, fx.kitchen.created)

	// The sequence increment rolled back too; the next order starts at 1.
	order, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(130001), order.OrderNumber)
}

func TestCreateValidatesInput(t *testing.T) {
	fx := setupOrdersService(t)

	cases := []CreateOrderInput{
		{TenantID: uuid.Nil, Channel: enums.OrderChannelPOS,
			Items: []CreateOrderItemInput{{ProductID: fx.drink.ID, Quantity: 1}}},
		// Delivery orders only enter through webhook ingestion.
		{TenantID: fx.tenant.ID, Channel: enums.OrderChannelDeliveryApp,
			Items: []CreateOrderItemInput{{ProductID: fx.drink.ID, Quantity: 1}}},
		{TenantID: fx.tenant.ID, Channel: enums.OrderChannelPOS, Items: nil},
		{TenantID: fx.tenant.ID, Channel: enums.OrderChannelPOS,
			Items: []CreateOrderItemInput{{ProductID: fx.drink.ID, Quantity: 0}}},
	}
	for _, input := range cases {
		_, err := fx.svc.Create(context.Background(), input)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	}
	assert.Zero(t, fx.orderCount(t))
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	fx := setupOrdersService(t)
	require.NoError(t, fx.db.Exec(`UPDATE products SET active = 0 WHERE id = ?`, fx.drink.ID).Error)

	_, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, fx.orderCount(t))
}

func TestCreateRejectsDiscountAboveSubtotal(t *testing.T) {
	fx := setupOrdersService(t)

	input := posOrder(fx, CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1})
	input.Discount = decimal.RequireFromString("1000")

	_, err := fx.svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, fx.orderCount(t))
}

func TestTransitionConfirmsOrder(t *testing.T) {
	fx := setupOrdersService(t)
	order, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.NoError(t, err)

	updated, err := fx.svc.Transition(context.Background(), TransitionInput{
		TenantID: fx.tenant.ID,
		OrderID:  order.ID,
		Target:   enums.OrderStatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)
	assert.NotNil(t, updated.ConfirmedAt)
	assert.Len(t, fx.kitchen.updated, 1)

	var stored models.Order
	require.NoError(t, fx.db.Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	fx := setupOrdersService(t)
	order, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.NoError(t, err)

	_, err = fx.svc.Transition(context.Background(), TransitionInput{
		TenantID: fx.tenant.ID,
		OrderID:  order.ID,
		Target:   enums.OrderStatusDelivered,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	var stored models.Order
	require.NoError(t, fx.db.Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, enums.OrderStatusOpen, stored.Status)
}

func TestTransitionSameStatusIsIdempotent(t *testing.T) {
	fx := setupOrdersService(t)
	order, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.NoError(t, err)

	updated, err := fx.svc.Transition(context.Background(), TransitionInput{
		TenantID: fx.tenant.ID,
		OrderID:  order.ID,
		Target:   enums.OrderStatusOpen,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusOpen, updated.Status)
}

func TestTransitionUnknownOrder(t *testing.T) {
	fx := setupOrdersService(t)

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		TenantID: fx.tenant.ID,
		OrderID:  uuid.New(),
		Target:   enums.OrderStatusConfirmed,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestTransitionReopensDeliveredOrder(t *testing.T) {
	fx := setupOrdersService(t)
	order, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.NoError(t, err)

	// Walk the full happy path, then reopen for late items.
	path := []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusInPreparation,
		enums.OrderStatusPrepared,
		enums.OrderStatusDelivered,
		enums.OrderStatusOpen,
	}
	for _, target := range path {
		_, err := fx.svc.Transition(context.Background(), TransitionInput{
			TenantID: fx.tenant.ID,
			OrderID:  order.ID,
			Target:   target,
		})
		require.NoError(t, err, "transition to %s", target)
	}

	var stored models.Order
	require.NoError(t, fx.db.Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, enums.OrderStatusOpen, stored.Status)
}

func TestUpdateItemStatusOnCancelledOrder(t *testing.T) {
	fx := setupOrdersService(t)
	order, err := fx.svc.Create(context.Background(), posOrder(fx,
		CreateOrderItemInput{ProductID: fx.drink.ID, Quantity: 1},
	))
	require.NoError(t, err)

	_, err = fx.svc.Transition(context.Background(), TransitionInput{
		TenantID: fx.tenant.ID,
		OrderID:  order.ID,
		Target:   enums.OrderStatusCancelled,
	})
	require.NoError(t, err)

	err = fx.svc.UpdateItemStatus(context.Background(), fx.tenant.ID, order.ID, order.Items[0].ID, enums.OrderItemStatusReady)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}
