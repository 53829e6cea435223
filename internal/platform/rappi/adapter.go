package rappi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// SignatureHeader is the header Rappi signs webhook deliveries with. The
// value is "sha256=<hex hmac>" over the raw body.
const SignatureHeader = "X-Rappi-Signature"

const signaturePrefix = "sha256="

var errLoggerRequired = errors.New("rappi logger is required")

// Adapter implements the Rappi integration: hex HMAC signatures, Rappi's
// webhook dialect and its order management REST API behind a static token.
type Adapter struct {
	cfg    config.RappiConfig
	http   *http.Client
	logger *logger.Logger
}

// NewAdapter builds the Rappi adapter.
func NewAdapter(cfg config.RappiConfig, logg *logger.Logger) (*Adapter, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	return &Adapter{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logg,
	}, nil
}

func (a *Adapter) Code() enums.PlatformCode {
	return enums.PlatformRappi
}

func (a *Adapter) SignatureHeader() string {
	return SignatureHeader
}

// ValidateSignature checks the "sha256=<hex>" HMAC over the raw body.
// Malformed input returns false, never an error.
func (a *Adapter) ValidateSignature(signature string, body []byte) bool {
	secret := strings.TrimSpace(a.cfg.WebhookSecret)
	sig := strings.TrimSpace(signature)
	if secret == "" || sig == "" {
		return false
	}
	if !strings.HasPrefix(sig, signaturePrefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(sig, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// webhookPayload mirrors the relevant subset of Rappi's webhook JSON.
type webhookPayload struct {
	Event   string `json:"event"`
	StoreID string `json:"store_id"`
	Order   struct {
		ID    string `json:"id"`
		Items []struct {
			SKU       string      `json:"sku"`
			Name      string      `json:"name"`
			Units     int         `json:"units"`
			UnitPrice decimal.Decimal `json:"unit_price"`
			Comments  string      `json:"comments"`
		} `json:"items"`
		Client struct {
			Name  string `json:"name"`
			Phone string `json:"phone"`
		} `json:"client"`
		DeliveryAddress struct {
			Street string `json:"street"`
			City   string `json:"city"`
			Notes  string `json:"notes"`
		} `json:"delivery_address"`
		Totals struct {
			Subtotal    decimal.Decimal `json:"subtotal"`
			DeliveryFee decimal.Decimal `json:"delivery_fee"`
			Discount    decimal.Decimal `json:"discount"`
			Total       decimal.Decimal `json:"total"`
		} `json:"totals"`
		Status             string `json:"status"`
		CancellationReason string `json:"cancellation_reason"`
		Comments           string `json:"comments"`
	} `json:"order"`
}

// ParseWebhook maps Rappi's payload into the canonical event shape.
func (a *Adapter) ParseWebhook(body []byte) (*platform.WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode rappi webhook: %w", err)
	}
	if strings.TrimSpace(payload.Order.ID) == "" {
		return nil, fmt.Errorf("rappi webhook missing order id")
	}

	event := &platform.WebhookEvent{
		ExternalOrderID: payload.Order.ID,
		ExternalStoreID: payload.StoreID,
		RawStatus:       payload.Order.Status,
		CancelReason:    payload.Order.CancellationReason,
	}

	switch strings.ToLower(strings.TrimSpace(payload.Event)) {
	case "order_created":
		event.EventType = enums.WebhookEventOrderNew
		event.Order = a.normalizeOrder(&payload)
	case "order_cancelled":
		event.EventType = enums.WebhookEventOrderCancelled
	case "order_status_updated":
		event.EventType = enums.WebhookEventStatusUpdate
		event.Status = a.mapStatus(payload.Order.Status)
	default:
		return nil, fmt.Errorf("unsupported rappi event %q", payload.Event)
	}
	return event, nil
}

func (a *Adapter) normalizeOrder(payload *webhookPayload) *platform.NormalizedOrder {
	order := &platform.NormalizedOrder{
		ExternalOrderID: payload.Order.ID,
		ExternalStoreID: payload.StoreID,
		Subtotal:        payload.Order.Totals.Subtotal,
		DeliveryFee:     payload.Order.Totals.DeliveryFee,
		Discount:        payload.Order.Totals.Discount,
		Total:           payload.Order.Totals.Total,
		Notes:           payload.Order.Comments,
	}
	for _, item := range payload.Order.Items {
		order.Items = append(order.Items, platform.NormalizedOrderItem{
			ExternalSKU: item.SKU,
			Name:        item.Name,
			Quantity:    item.Units,
			UnitPrice:   item.UnitPrice,
			Notes:       item.Comments,
		})
	}
	if payload.Order.Client.Name != "" || payload.Order.Client.Phone != "" {
		order.Customer = &platform.NormalizedCustomer{
			Name:  payload.Order.Client.Name,
			Phone: payload.Order.Client.Phone,
		}
	}
	if payload.Order.DeliveryAddress.Street != "" {
		order.DeliveryAddress = &platform.NormalizedAddress{
			Street: payload.Order.DeliveryAddress.Street,
			City:   payload.Order.DeliveryAddress.City,
			Notes:  payload.Order.DeliveryAddress.Notes,
		}
	}
	return order
}

// mapStatus folds Rappi's status vocabulary into the canonical enum. An
// unmapped status must not crash the pipeline; it degrades to CONFIRMED and
// logs the raw value.
func (a *Adapter) mapStatus(raw string) enums.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "created", "pending":
		return enums.OrderStatusOpen
	case "taken", "confirmed":
		return enums.OrderStatusConfirmed
	case "preparing", "in_progress":
		return enums.OrderStatusInPreparation
	case "ready", "ready_for_pickup":
		return enums.OrderStatusPrepared
	case "on_route", "picked_up":
		return enums.OrderStatusOnRoute
	case "delivered", "finished":
		return enums.OrderStatusDelivered
	case "cancelled", "canceled":
		return enums.OrderStatusCancelled
	default:
		ctx := a.logger.WithField(context.Background(), "raw_status", raw)
		a.logger.Warn(ctx, "unmapped rappi status, defaulting to CONFIRMED")
		return enums.OrderStatusConfirmed
	}
}

// AcceptOrder takes the order on Rappi's side with a prep-time estimate.
func (a *Adapter) AcceptOrder(ctx context.Context, externalID string, estimatedPrepMinutes int) platform.PushResult {
	body := map[string]any{"estimated_time": estimatedPrepMinutes}
	return a.push(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/take", externalID), body, "accept_order")
}

// RejectOrder declines the order with a reason visible to Rappi support.
func (a *Adapter) RejectOrder(ctx context.Context, externalID string, reason string) platform.PushResult {
	body := map[string]any{"reason": reason}
	return a.push(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/reject", externalID), body, "reject_order")
}

// UpdateOrderStatus pushes a canonical status mapped back to Rappi's
// vocabulary.
func (a *Adapter) UpdateOrderStatus(ctx context.Context, externalID string, status enums.OrderStatus) platform.PushResult {
	rappiStatus, ok := statusToRappi(status)
	if !ok {
		return platform.PushResult{
			Success: false,
			Detail:  fmt.Sprintf("status %s has no rappi equivalent", status),
		}
	}
	body := map[string]any{"status": rappiStatus}
	return a.push(ctx, http.MethodPut, fmt.Sprintf("/orders/%s/status", externalID), body, "update_status")
}

// PushMenu uploads the full catalog.
func (a *Adapter) PushMenu(ctx context.Context, products []platform.MenuProduct) platform.PushResult {
	items := make([]map[string]any, 0, len(products))
	for _, p := range products {
		items = append(items, map[string]any{
			"sku":       p.ExternalSKU,
			"name":      p.Name,
			"category":  p.Category,
			"price":     p.Price,
			"available": p.Available,
		})
	}
	return a.push(ctx, http.MethodPut, "/menu", map[string]any{"items": items}, "push_menu")
}

// UpdateAvailability toggles one product.
func (a *Adapter) UpdateAvailability(ctx context.Context, update platform.AvailabilityUpdate) platform.PushResult {
	body := map[string]any{"sku": update.ExternalSKU, "available": update.Available}
	return a.push(ctx, http.MethodPatch, "/menu/availability", body, "update_availability")
}

func statusToRappi(status enums.OrderStatus) (string, bool) {
	switch status {
	case enums.OrderStatusConfirmed:
		return "taken", true
	case enums.OrderStatusInPreparation:
		return "preparing", true
	case enums.OrderStatusPrepared:
		return "ready", true
	case enums.OrderStatusOnRoute:
		return "on_route", true
	case enums.OrderStatusDelivered:
		return "delivered", true
	case enums.OrderStatusCancelled:
		return "cancelled", true
	default:
		return "", false
	}
}

func (a *Adapter) push(ctx context.Context, method, path string, body any, op string) platform.PushResult {
	encoded, err := json.Marshal(body)
	if err != nil {
		return platform.PushResult{Success: false, Err: fmt.Errorf("encode %s body: %w", op, err)}
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return platform.PushResult{Success: false, Err: fmt.Errorf("build %s request: %w", op, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-application-id", "control-gastronomico")
	if token := strings.TrimSpace(a.cfg.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	a.log(ctx, "request", op, map[string]any{"path": path})

	resp, err := a.http.Do(req)
	if err != nil {
		a.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return platform.PushResult{Success: false, Err: err}
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	result := platform.PushResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Detail:     strings.TrimSpace(string(snippet)),
	}
	if !result.Success {
		a.log(ctx, "error", op, map[string]any{"status_code": resp.StatusCode, "error": result.Detail})
		return result
	}
	a.log(ctx, "response", op, map[string]any{"status_code": resp.StatusCode})
	return result
}

func (a *Adapter) log(ctx context.Context, phase, op string, fields map[string]any) {
	logFields := map[string]any{
		"platform":  enums.PlatformRappi.String(),
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = a.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		a.logger.Error(ctx, fmt.Sprintf("rappi %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		a.logger.Info(ctx, fmt.Sprintf("rappi %s", phase))
	}
}
