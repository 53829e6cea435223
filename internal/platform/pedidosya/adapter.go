package pedidosya

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

// SignatureHeader carries PedidosYa's base64-encoded HMAC over the raw body.
const SignatureHeader = "Peya-Signature"

var errLoggerRequired = errors.New("pedidosya logger is required")

// Adapter implements the PedidosYa integration. Unlike Rappi its API sits
// behind OAuth client credentials; the token cache is internal and callers
// never handle tokens.
type Adapter struct {
	cfg    config.PedidosYaConfig
	http   *http.Client
	tokens *tokenSource
	logger *logger.Logger
}

// NewAdapter builds the PedidosYa adapter.
func NewAdapter(cfg config.PedidosYaConfig, logg *logger.Logger) (*Adapter, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	client := &http.Client{Timeout: cfg.Timeout}
	return &Adapter{
		cfg:    cfg,
		http:   client,
		tokens: newTokenSource(cfg.AuthURL, cfg.ClientID, cfg.ClientSecret, client),
		logger: logg,
	}, nil
}

func (a *Adapter) Code() enums.PlatformCode {
	return enums.PlatformPedidosYa
}

func (a *Adapter) SignatureHeader() string {
	return SignatureHeader
}

// ValidateSignature checks the base64 HMAC-SHA256 over the raw body.
// Malformed input returns false, never an error.
func (a *Adapter) ValidateSignature(signature string, body []byte) bool {
	secret := strings.TrimSpace(a.cfg.WebhookSecret)
	sig := strings.TrimSpace(signature)
	if secret == "" || sig == "" {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// webhookPayload mirrors the relevant subset of PedidosYa's webhook JSON.
type webhookPayload struct {
	Action     string `json:"action"`
	Restaurant struct {
		ID string `json:"id"`
	} `json:"restaurant"`
	Order struct {
		ID       string `json:"id"`
		State    string `json:"state"`
		Notes    string `json:"notes"`
		Reason   string `json:"reason"`
		Customer struct {
			Name  string `json:"name"`
			Phone string `json:"phone"`
		} `json:"customer"`
		Address struct {
			Street      string `json:"street"`
			City        string `json:"city"`
			Description string `json:"description"`
		} `json:"address"`
		Details []struct {
			Product struct {
				IntegrationCode string          `json:"integrationCode"`
				Name            string          `json:"name"`
				UnitPrice       decimal.Decimal `json:"unitPrice"`
			} `json:"product"`
			Quantity int    `json:"quantity"`
			Notes    string `json:"notes"`
		} `json:"details"`
		Subtotal    decimal.Decimal `json:"subtotal"`
		ShippingFee decimal.Decimal `json:"shippingFee"`
		Discount    decimal.Decimal `json:"discount"`
		Total       decimal.Decimal `json:"total"`
	} `json:"order"`
}

// ParseWebhook maps PedidosYa's payload into the canonical event shape.
func (a *Adapter) ParseWebhook(body []byte) (*platform.WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode pedidosya webhook: %w", err)
	}
	if strings.TrimSpace(payload.Order.ID) == "" {
		return nil, fmt.Errorf("pedidosya webhook missing order id")
	}

	event := &platform.WebhookEvent{
		ExternalOrderID: payload.Order.ID,
		ExternalStoreID: payload.Restaurant.ID,
		RawStatus:       payload.Order.State,
		CancelReason:    payload.Order.Reason,
	}

	switch strings.ToUpper(strings.TrimSpace(payload.Action)) {
	case "NEW_ORDER":
		event.EventType = enums.WebhookEventOrderNew
		event.Order = a.normalizeOrder(&payload)
	case "ORDER_CANCELLED":
		event.EventType = enums.WebhookEventOrderCancelled
	case "STATE_CHANGED":
		event.EventType = enums.WebhookEventStatusUpdate
		event.Status = a.mapStatus(payload.Order.State)
	default:
		return nil, fmt.Errorf("unsupported pedidosya action %q", payload.Action)
	}
	return event, nil
}

func (a *Adapter) normalizeOrder(payload *webhookPayload) *platform.NormalizedOrder {
	order := &platform.NormalizedOrder{
		ExternalOrderID: payload.Order.ID,
		ExternalStoreID: payload.Restaurant.ID,
		Subtotal:        payload.Order.Subtotal,
		DeliveryFee:     payload.Order.ShippingFee,
		Discount:        payload.Order.Discount,
		Total:           payload.Order.Total,
		Notes:           payload.Order.Notes,
	}
	for _, detail := range payload.Order.Details {
		order.Items = append(order.Items, platform.NormalizedOrderItem{
			ExternalSKU: detail.Product.IntegrationCode,
			Name:        detail.Product.Name,
			Quantity:    detail.Quantity,
			UnitPrice:   detail.Product.UnitPrice,
			Notes:       detail.Notes,
		})
	}
	if payload.Order.Customer.Name != "" || payload.Order.Customer.Phone != "" {
		order.Customer = &platform.NormalizedCustomer{
			Name:  payload.Order.Customer.Name,
			Phone: payload.Order.Customer.Phone,
		}
	}
	if payload.Order.Address.Street != "" {
		order.DeliveryAddress = &platform.NormalizedAddress{
			Street: payload.Order.Address.Street,
			City:   payload.Order.Address.City,
			Notes:  payload.Order.Address.Description,
		}
	}
	return order
}

// mapStatus folds PedidosYa's state vocabulary into the canonical enum,
// degrading unmapped states to CONFIRMED with a logged warning.
func (a *Adapter) mapStatus(raw string) enums.OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING":
		return enums.OrderStatusOpen
	case "CONFIRMED", "ACCEPTED":
		return enums.OrderStatusConfirmed
	case "PREPARING", "IN_PREPARATION":
		return enums.OrderStatusInPreparation
	case "READY_FOR_PICKUP", "PREPARED":
		return enums.OrderStatusPrepared
	case "IN_DELIVERY", "PICKED_UP":
		return enums.OrderStatusOnRoute
	case "DELIVERED", "COMPLETED":
		return enums.OrderStatusDelivered
	case "REJECTED", "CANCELLED":
		return enums.OrderStatusCancelled
	default:
		ctx := a.logger.WithField(context.Background(), "raw_status", raw)
		a.logger.Warn(ctx, "unmapped pedidosya state, defaulting to CONFIRMED")
		return enums.OrderStatusConfirmed
	}
}

// AcceptOrder confirms the order with a prep-time estimate.
func (a *Adapter) AcceptOrder(ctx context.Context, externalID string, estimatedPrepMinutes int) platform.PushResult {
	body := map[string]any{"preparationTimeMinutes": estimatedPrepMinutes}
	return a.push(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/confirmation", externalID), body, "accept_order")
}

// RejectOrder declines the order with a reason.
func (a *Adapter) RejectOrder(ctx context.Context, externalID string, reason string) platform.PushResult {
	body := map[string]any{"rejectReason": reason}
	return a.push(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/rejection", externalID), body, "reject_order")
}

// UpdateOrderStatus pushes a canonical status mapped back to PedidosYa's
// vocabulary.
func (a *Adapter) UpdateOrderStatus(ctx context.Context, externalID string, status enums.OrderStatus) platform.PushResult {
	peyaState, ok := statusToPeya(status)
	if !ok {
		return platform.PushResult{
			Success: false,
			Detail:  fmt.Sprintf("status %s has no pedidosya equivalent", status),
		}
	}
	body := map[string]any{"state": peyaState}
	return a.push(ctx, http.MethodPut, fmt.Sprintf("/orders/%s/state", externalID), body, "update_status")
}

// PushMenu uploads the full catalog.
func (a *Adapter) PushMenu(ctx context.Context, products []platform.MenuProduct) platform.PushResult {
	items := make([]map[string]any, 0, len(products))
	for _, p := range products {
		items = append(items, map[string]any{
			"integrationCode": p.ExternalSKU,
			"name":            p.Name,
			"section":         p.Category,
			"price":           p.Price,
			"enabled":         p.Available,
		})
	}
	return a.push(ctx, http.MethodPut, "/menu", map[string]any{"products": items}, "push_menu")
}

// UpdateAvailability toggles one product.
func (a *Adapter) UpdateAvailability(ctx context.Context, update platform.AvailabilityUpdate) platform.PushResult {
	body := map[string]any{"integrationCode": update.ExternalSKU, "enabled": update.Available}
	return a.push(ctx, http.MethodPatch, "/menu/availability", body, "update_availability")
}

func statusToPeya(status enums.OrderStatus) (string, bool) {
	switch status {
	case enums.OrderStatusConfirmed:
		return "CONFIRMED", true
	case enums.OrderStatusInPreparation:
		return "PREPARING", true
	case enums.OrderStatusPrepared:
		return "READY_FOR_PICKUP", true
	case enums.OrderStatusOnRoute:
		return "IN_DELIVERY", true
	case enums.OrderStatusDelivered:
		return "DELIVERED", true
	case enums.OrderStatusCancelled:
		return "REJECTED", true
	default:
		return "", false
	}
}

func (a *Adapter) push(ctx context.Context, method, path string, body any, op string) platform.PushResult {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		a.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return platform.PushResult{Success: false, Err: err}
	}

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
	req.Header.Set("Authorization", "Bearer "+token)

	a.log(ctx, "request", op, map[string]any{"path": path})

	resp, err := a.http.Do(req)
	if err != nil {
		a.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return platform.PushResult{Success: false, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked upstream; drop it so the next attempt
		// re-authenticates.
		a.tokens.Invalidate()
	}

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
		"platform":  enums.PlatformPedidosYa.String(),
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = a.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		a.logger.Error(ctx, fmt.Sprintf("pedidosya %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		a.logger.Info(ctx, fmt.Sprintf("pedidosya %s", phase))
	}
}
