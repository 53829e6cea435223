package orders

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/middleware"
	"github.com/faacuromano/control-gastronomicoV2-sub000/api/responses"
	orderssvc "github.com/faacuromano/control-gastronomicoV2-sub000/internal/orders"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

var validate = validator.New()

type createItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid4"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Notes     *string `json:"notes"`
}

type createOrderRequest struct {
	Channel       string              `json:"channel" validate:"required"`
	Items         []createItemRequest `json:"items" validate:"required,min=1,dive"`
	TableNumber   *int                `json:"table_number"`
	CustomerName  *string             `json:"customer_name"`
	CustomerPhone *string             `json:"customer_phone"`
	Notes         *string             `json:"notes"`
	Discount      decimal.Decimal     `json:"discount"`
}

type transitionRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason"`
}

type itemStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create handles POST /orders for POS and waiter channels.
func Create(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request"))
			return
		}

		channel, err := enums.ParseOrderChannel(req.Channel)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel"))
			return
		}

		items := make([]orderssvc.CreateOrderItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			items = append(items, orderssvc.CreateOrderItemInput{
				ProductID: productID,
				Quantity:  item.Quantity,
				Notes:     item.Notes,
			})
		}

		order, err := svc.Create(ctx, orderssvc.CreateOrderInput{
			TenantID:      tenantID,
			Channel:       channel,
			Items:         items,
			TableNumber:   req.TableNumber,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Notes:         req.Notes,
			Discount:      req.Discount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, orderResponse(order))
	}
}

// Get handles GET /orders/{orderId}.
func Get(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(ctx, tenantID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponse(order))
	}
}

// List handles GET /orders?business_date=YYYY-MM-DD.
func List(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}

		raw := r.URL.Query().Get("business_date")
		if raw == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "business_date query parameter required"))
			return
		}
		businessDate, err := time.Parse("2006-01-02", raw)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business_date"))
			return
		}

		rows, err := svc.ListByBusinessDate(ctx, tenantID, businessDate)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]map[string]any, 0, len(rows))
		for i := range rows {
			out = append(out, orderResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// Transition handles POST /orders/{orderId}/transition.
func Transition(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request"))
			return
		}

		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.Transition(ctx, orderssvc.TransitionInput{
			TenantID: tenantID,
			OrderID:  orderID,
			Target:   target,
			Reason:   req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponse(order))
	}
}

// UpdateItemStatus handles PATCH /orders/{orderId}/items/{itemId}/status.
func UpdateItemStatus(svc *orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		var req itemStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		target, err := enums.ParseOrderItemStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item status"))
			return
		}

		if err := svc.UpdateItemStatus(ctx, tenantID, orderID, itemID, target); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": target.String()})
	}
}

func orderResponse(order *models.Order) map[string]any {
	out := map[string]any{
		"id":             order.ID,
		"order_number":   order.OrderNumber,
		"business_date":  order.BusinessDate.Format("2006-01-02"),
		"channel":        order.Channel,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"subtotal":       order.Subtotal,
		"discount":       order.Discount,
		"delivery_fee":   order.DeliveryFee,
		"total":          order.Total,
		"created_at":     order.CreatedAt,
	}
	if order.PlatformCode != nil {
		out["platform"] = *order.PlatformCode
	}
	if order.ExternalID != nil {
		out["external_id"] = *order.ExternalID
	}
	if order.TableNumber != nil {
		out["table_number"] = *order.TableNumber
	}
	if order.CancelReason != nil {
		out["cancel_reason"] = *order.CancelReason
	}
	if len(order.Items) > 0 {
		items := make([]map[string]any, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, map[string]any{
				"id":         item.ID,
				"name":       item.Name,
				"quantity":   item.Quantity,
				"unit_price": item.UnitPrice,
				"total":      item.Total,
				"status":     item.Status,
			})
		}
		out["items"] = items
	}
	return out
}
