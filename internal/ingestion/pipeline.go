package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/businessdate"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/identity"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/orders"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/products"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/queue"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/stock"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/tenants"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/metrics"
)

const (
	// orderDedupConstraint backs webhook dedup. Insert first, let the
	// database object, and treat the violation as "already processed".
	orderDedupConstraint = "ux_orders_tenant_external"

	defaultPrepMinutes = 20

	acceptAttempts = 3
	acceptBaseWait = 2 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type kitchenNotifier interface {
	OrderCreated(ctx context.Context, order *models.Order)
	OrderUpdated(ctx context.Context, order *models.Order)
}

// PipelineParams collects the ingestion pipeline dependencies.
type PipelineParams struct {
	Registry *platform.Registry
	Tenants  *tenants.Service
	Products products.Repository
	Orders   orders.Repository
	Tx       txRunner
	Resolver *businessdate.Resolver
	Identity *identity.Service
	Stock    *stock.Deductor
	Kitchen  kitchenNotifier
	Audit    *Recorder
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// Pipeline turns queued webhook jobs into order mutations. It is the only
// writer of delivery-platform orders; the HTTP edge never touches the orders
// table.
type Pipeline struct {
	registry    *platform.Registry
	tenantsSvc  *tenants.Service
	productRepo products.Repository
	orderRepo   orders.Repository
	tx          txRunner
	resolver    *businessdate.Resolver
	identity    *identity.Service
	stock       *stock.Deductor
	kitchen     kitchenNotifier
	audit       *Recorder
	metrics     *metrics.Metrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewPipeline builds the ingestion pipeline.
func NewPipeline(p PipelineParams) (*Pipeline, error) {
	if p.Registry == nil {
		return nil, fmt.Errorf("platform registry required")
	}
	if p.Tenants == nil {
		return nil, fmt.Errorf("tenants service required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
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
	if p.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		registry:    p.Registry,
		tenantsSvc:  p.Tenants,
		productRepo: p.Products,
		orderRepo:   p.Orders,
		tx:          p.Tx,
		resolver:    p.Resolver,
		identity:    p.Identity,
		stock:       p.Stock,
		kitchen:     p.Kitchen,
		audit:       p.Audit,
		metrics:     p.Metrics,
		logg:        p.Logger,
		now:         now,
	}, nil
}

// Handle processes one webhook job. Retryable errors (lock timeouts, broker
// or database outages) propagate so the queue redelivers; everything else is
// resolved here and recorded in the audit trail.
func (p *Pipeline) Handle(ctx context.Context, job *queue.WebhookJob) error {
	adapter, err := p.registry.Get(job.Platform)
	if err != nil {
		p.reject(ctx, job, nil, "no adapter for platform")
		return err
	}

	event, err := adapter.ParseWebhook(job.Payload)
	if err != nil {
		p.reject(ctx, job, nil, fmt.Sprintf("unparseable payload: %v", err))
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse webhook")
	}

	tenant, store, err := p.tenantsSvc.ResolvePlatformStore(ctx, job.Platform, event.ExternalStoreID)
	if err != nil {
		p.reject(ctx, job, nil, fmt.Sprintf("store resolution failed: %v", err))
		return err
	}

	switch event.EventType {
	case enums.WebhookEventOrderNew:
		return p.handleOrderNew(ctx, job, adapter, event, tenant, store)
	case enums.WebhookEventOrderCancelled:
		return p.handleCancellation(ctx, job, event, tenant)
	case enums.WebhookEventStatusUpdate:
		return p.handleStatusUpdate(ctx, job, event, tenant)
	default:
		p.reject(ctx, job, &tenant.ID, fmt.Sprintf("unsupported event type %s", event.EventType))
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported event type %s", event.EventType))
	}
}

func (p *Pipeline) handleOrderNew(ctx context.Context, job *queue.WebhookJob, adapter platform.Adapter, event *platform.WebhookEvent, tenant *models.Tenant, store *models.TenantPlatformStore) error {
	if event.Order == nil || len(event.Order.Items) == 0 {
		p.reject(ctx, job, &tenant.ID, "order payload has no items")
		return pkgerrors.New(pkgerrors.CodeValidation, "order payload has no items")
	}

	skus := make([]string, 0, len(event.Order.Items))
	for _, item := range event.Order.Items {
		skus = append(skus, item.ExternalSKU)
	}
	resolution, err := products.ResolveSKUs(ctx, p.productRepo, tenant.ID, job.Platform, skus)
	if err != nil {
		return err
	}
	if len(resolution.Missing) > 0 {
		detail := fmt.Sprintf("unmapped SKUs: %s", strings.Join(resolution.Missing, ", "))
		p.reject(ctx, job, &tenant.ID, detail)
		result := adapter.RejectOrder(ctx, event.ExternalOrderID, detail)
		if !result.Success {
			p.logg.Error(ctx, "failed to reject order on platform", result.Err)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, detail)
	}

	now := p.now()
	businessDate, err := p.resolver.Resolve(ctx, tenant, now)
	if err != nil {
		return err
	}
	localHour, err := localHourFor(tenant, now)
	if err != nil {
		return err
	}

	var created *models.Order
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.orderRepo.WithTx(tx)

		ident, err := p.identity.Allocate(ctx, tx, identity.AllocateInput{
			TenantID:     tenant.ID,
			BusinessDate: businessDate,
			LocalHour:    localHour,
		})
		if err != nil {
			return err
		}

		order, items := buildDeliveryOrder(ident, tenant.ID, job.Platform, event, store, resolution, now)
		if _, err := repo.Create(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}

		for _, item := range event.Order.Items {
			product := resolution.Products[item.ExternalSKU]
			if err := p.stock.Deduct(ctx, tx, product, item.Quantity); err != nil {
				return err
			}
		}

		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, orderDedupConstraint) {
			// The platform redelivered a webhook we already turned into an
			// order. Constraint-first dedup: no check-then-insert race.
			if p.metrics != nil {
				p.metrics.IncWebhookDuplicate(job.Platform.String())
			}
			p.record(ctx, job, &tenant.ID, OutcomeDuplicate, "order already exists")
			p.logg.Info(ctx, "duplicate delivery order ignored")
			return nil
		}
		if pkgerrors.Retryable(err) {
			return err
		}
		p.record(ctx, job, &tenant.ID, OutcomeFailed, err.Error())
		return err
	}

	if p.metrics != nil {
		p.metrics.IncOrderCreated(enums.OrderChannelDeliveryApp.String())
	}
	if p.kitchen != nil {
		p.kitchen.OrderCreated(ctx, created)
	}
	p.record(ctx, job, &tenant.ID, OutcomeProcessed, "")

	if store.AutoAccept {
		p.acceptWithRetries(ctx, adapter, created, event.ExternalOrderID)
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"tenant_id":    tenant.ID.String(),
		"order_id":     created.ID.String(),
		"order_number": created.OrderNumber,
		"external_id":  event.ExternalOrderID,
	})
	p.logg.Info(ctx, "delivery order ingested")
	return nil
}

// acceptWithRetries confirms the order back to the platform. Acceptance is
// outside the order transaction: the order is already committed and a
// platform outage must not undo it. After the last attempt fails the order
// is annotated for manual follow-up instead of failing the job.
func (p *Pipeline) acceptWithRetries(ctx context.Context, adapter platform.Adapter, order *models.Order, externalID string) {
	wait := acceptBaseWait
	var last platform.PushResult
	for attempt := 1; attempt <= acceptAttempts; attempt++ {
		last = adapter.AcceptOrder(ctx, externalID, defaultPrepMinutes)
		if last.Success {
			return
		}
		attemptCtx := p.logg.WithFields(ctx, map[string]any{
			"external_id": externalID,
			"attempt":     attempt,
			"status_code": last.StatusCode,
			"detail":      last.Detail,
		})
		p.logg.Warn(attemptCtx, "platform accept attempt failed")
		if attempt < acceptAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
		}
	}

	note := fmt.Sprintf("platform accept failed after %d attempts: %s", acceptAttempts, last.Detail)
	if err := p.orderRepo.Update(ctx, order.ID, map[string]any{"notes": appendNote(order.Notes, note)}); err != nil {
		p.logg.Error(ctx, "failed to annotate order after accept failure", err)
	}
	p.logg.Error(p.logg.WithField(ctx, "external_id", externalID), "platform accept exhausted retries", last.Err)
}

func (p *Pipeline) handleCancellation(ctx context.Context, job *queue.WebhookJob, event *platform.WebhookEvent, tenant *models.Tenant) error {
	var cancelled *models.Order
	var noop bool
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.orderRepo.WithTx(tx)

		order, err := repo.FindByExternalIDForUpdate(ctx, tenant.ID, event.ExternalOrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no order for external id %s", event.ExternalOrderID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if order.Status == enums.OrderStatusCancelled {
			noop = true
			return nil
		}
		if err := orders.GuardTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			if p.metrics != nil {
				p.metrics.IncTransitionRejected(order.Status.String(), enums.OrderStatusCancelled.String())
			}
			return err
		}

		now := p.now()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}
		if event.CancelReason != "" {
			updates["cancel_reason"] = event.CancelReason
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}

		if err := p.restockOrder(ctx, tx, repo, order); err != nil {
			return err
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		cancelled = order
		return nil
	})
	if err != nil {
		if pkgerrors.Retryable(err) {
			return err
		}
		p.record(ctx, job, &tenant.ID, OutcomeFailed, err.Error())
		return err
	}

	if noop {
		p.record(ctx, job, &tenant.ID, OutcomeNoop, "order already cancelled")
		p.logg.Info(ctx, "cancellation replay ignored")
		return nil
	}

	if p.kitchen != nil {
		p.kitchen.OrderUpdated(ctx, cancelled)
	}
	p.record(ctx, job, &tenant.ID, OutcomeProcessed, "")
	p.logg.Info(p.logg.WithField(ctx, "order_id", cancelled.ID.String()), "delivery order cancelled")
	return nil
}

func (p *Pipeline) handleStatusUpdate(ctx context.Context, job *queue.WebhookJob, event *platform.WebhookEvent, tenant *models.Tenant) error {
	if !event.Status.IsValid() {
		p.reject(ctx, job, &tenant.ID, fmt.Sprintf("unmappable status %q", event.RawStatus))
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unmappable status %q", event.RawStatus))
	}

	var updated *models.Order
	var noop bool
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.orderRepo.WithTx(tx)

		order, err := repo.FindByExternalIDForUpdate(ctx, tenant.ID, event.ExternalOrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no order for external id %s", event.ExternalOrderID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		// A cancelled order is final; late status updates from the platform
		// are acknowledged and discarded.
		if order.Status == enums.OrderStatusCancelled || order.Status == event.Status {
			noop = true
			return nil
		}
		if err := orders.GuardTransition(order.Status, event.Status); err != nil {
			if p.metrics != nil {
				p.metrics.IncTransitionRejected(order.Status.String(), event.Status.String())
			}
			return err
		}

		now := p.now()
		updates := map[string]any{"status": event.Status}
		switch event.Status {
		case enums.OrderStatusConfirmed:
			updates["confirmed_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		order.Status = event.Status
		updated = order
		return nil
	})
	if err != nil {
		if pkgerrors.Retryable(err) {
			return err
		}
		p.record(ctx, job, &tenant.ID, OutcomeFailed, err.Error())
		return err
	}

	if noop {
		p.record(ctx, job, &tenant.ID, OutcomeNoop, "status unchanged")
		return nil
	}

	if p.kitchen != nil {
		p.kitchen.OrderUpdated(ctx, updated)
	}
	p.record(ctx, job, &tenant.ID, OutcomeProcessed, "")
	return nil
}

// restockOrder returns recipe stock for every line of a cancelled order.
func (p *Pipeline) restockOrder(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order) error {
	items, err := repo.FindItemsByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ProductID != nil {
			productIDs = append(productIDs, *item.ProductID)
		}
	}
	if len(productIDs) == 0 {
		return nil
	}

	productRows, err := p.productRepo.FindByIDs(ctx, order.TenantID, productIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products for restock")
	}
	byID := map[uuid.UUID]*models.Product{}
	for i := range productRows {
		byID[productRows[i].ID] = &productRows[i]
	}

	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		if product, ok := byID[*item.ProductID]; ok {
			if err := p.stock.Restock(ctx, tx, product, item.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) reject(ctx context.Context, job *queue.WebhookJob, tenantID *uuid.UUID, detail string) {
	if p.metrics != nil {
		p.metrics.IncWebhookRejected(job.Platform.String(), "pipeline")
	}
	p.record(ctx, job, tenantID, OutcomeRejected, detail)
}

func (p *Pipeline) record(ctx context.Context, job *queue.WebhookJob, tenantID *uuid.UUID, outcome, detail string) {
	p.audit.Record(ctx, AuditEntry{
		TenantID:   tenantID,
		Platform:   job.Platform,
		EventType:  job.EventType,
		ExternalID: job.ExternalOrderID,
		Outcome:    outcome,
		Detail:     detail,
		Payload:    job.Payload,
		ReceivedAt: job.ReceivedAt,
	})
}

func buildDeliveryOrder(ident *identity.Identifier, tenantID uuid.UUID, code enums.PlatformCode, event *platform.WebhookEvent, store *models.TenantPlatformStore, resolution *products.SKUResolution, now time.Time) (*models.Order, []models.OrderItem) {
	platformCode := code
	externalID := event.ExternalOrderID

	order := &models.Order{
		ID:            ident.ID,
		TenantID:      tenantID,
		OrderNumber:   ident.OrderNumber,
		BusinessDate:  ident.BusinessDate,
		Channel:       enums.OrderChannelDeliveryApp,
		Status:        enums.OrderStatusOpen,
		PaymentStatus: enums.PaymentStatusPaid,
		PlatformCode:  &platformCode,
		ExternalID:    &externalID,
		Discount:      event.Order.Discount,
		DeliveryFee:   event.Order.DeliveryFee,
	}
	if store.AutoAccept {
		order.Status = enums.OrderStatusConfirmed
		confirmedAt := now
		order.ConfirmedAt = &confirmedAt
	}
	if event.Order.Customer != nil {
		if event.Order.Customer.Name != "" {
			name := event.Order.Customer.Name
			order.CustomerName = &name
		}
		if event.Order.Customer.Phone != "" {
			phone := event.Order.Customer.Phone
			order.CustomerPhone = &phone
		}
	}
	if event.Order.Notes != "" {
		notes := event.Order.Notes
		order.Notes = &notes
	}

	items := make([]models.OrderItem, 0, len(event.Order.Items))
	subtotal := decimal.Zero
	for _, line := range event.Order.Items {
		product := resolution.Products[line.ExternalSKU]

		// Our channel pricing (delivery price, or base price plus markup) is
		// the source of truth for the line snapshot; the platform's price is
		// only a fallback for products priced upstream.
		unitPrice := products.PriceForChannel(product, enums.OrderChannelDeliveryApp)
		if unitPrice.IsZero() {
			unitPrice = line.UnitPrice
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		item := models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			Total:     lineTotal,
			Status:    enums.OrderItemStatusPending,
		}
		if product != nil {
			productID := product.ID
			item.ProductID = &productID
			if line.Name == "" {
				item.Name = product.Name
			}
		}
		if line.Notes != "" {
			notes := line.Notes
			item.Notes = &notes
		}
		items = append(items, item)
	}

	// The order totals always derive from the line snapshots: the persisted
	// order must agree with the sum of its own lines. The platform's own
	// figures survive in the audited raw payload, not on the order row.
	order.Subtotal = subtotal
	order.Total = subtotal.Sub(order.Discount).Add(order.DeliveryFee)
	return order, items
}

func appendNote(existing *string, note string) string {
	if existing == nil || *existing == "" {
		return note
	}
	return *existing + "\n" + note
}

func localHourFor(tenant *models.Tenant, now time.Time) (int, error) {
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant timezone")
	}
	return now.In(loc).Hour(), nil
}
