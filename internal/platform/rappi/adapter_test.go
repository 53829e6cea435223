package rappi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

const testSecret = "rappi-secret"

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(config.RappiConfig{
		WebhookSecret: testSecret,
		APIToken:      "token",
		BaseURL:       baseURL,
	}, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return adapter
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

const orderNewBody = `{
	"event": "order_created",
	"store_id": "store-77",
	"order": {
		"id": "abc123",
		"items": [
			{"sku": "P1", "name": "Empanada", "units": 2, "unit_price": "1200.50"},
			{"sku": "P2", "name": "Milanesa", "units": 1, "unit_price": "4500"}
		],
		"client": {"name": "Juan", "phone": "+5491100000000"},
		"totals": {"subtotal": "6901", "delivery_fee": "800", "discount": "0", "total": "7701"},
		"comments": "sin sal"
	}
}`

func TestValidateSignature(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused")
	body := []byte(orderNewBody)

	assert.True(t, adapter.ValidateSignature(signBody(body), body))
	assert.False(t, adapter.ValidateSignature(signBody([]byte("other")), body))
	assert.False(t, adapter.ValidateSignature("", body))
	assert.False(t, adapter.ValidateSignature("sha256=zz-not-hex", body))
	assert.False(t, adapter.ValidateSignature("md5=abcdef", body))
}

func TestValidateSignatureWithoutSecret(t *testing.T) {
	adapter, err := NewAdapter(config.RappiConfig{}, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	body := []byte("{}")
	assert.False(t, adapter.ValidateSignature(signBody(body), body))
}

func TestParseWebhookOrderNew(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused")

	event, err := adapter.ParseWebhook([]byte(orderNewBody))
	require.NoError(t, err)

	assert.Equal(t, enums.WebhookEventOrderNew, event.EventType)
	assert.Equal(t, "abc123", event.ExternalOrderID)
	assert.Equal(t, "store-77", event.ExternalStoreID)

	require.NotNil(t, event.Order)
	require.Len(t, event.Order.Items, 2)
	assert.Equal(t, "P1", event.Order.Items[0].ExternalSKU)
	assert.Equal(t, 2, event.Order.Items[0].Quantity)
	assert.True(t, event.Order.Items[0].UnitPrice.Equal(decimal.RequireFromString("1200.50")))
	assert.Equal(t, "P2", event.Order.Items[1].ExternalSKU)
	assert.Equal(t, 1, event.Order.Items[1].Quantity)
	assert.True(t, event.Order.Total.Equal(decimal.RequireFromString("7701")))
	require.NotNil(t, event.Order.Customer)
	assert.Equal(t, "Juan", event.Order.Customer.Name)
	assert.Equal(t, "sin sal", event.Order.Notes)
}

func TestParseWebhookCancellation(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused")

	body := `{"event":"order_cancelled","store_id":"store-77","order":{"id":"abc123","cancellation_reason":"customer asked"}}`
	event, err := adapter.ParseWebhook([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, enums.WebhookEventOrderCancelled, event.EventType)
	assert.Equal(t, "customer asked", event.CancelReason)
	assert.Nil(t, event.Order)
}

func TestParseWebhookStatusUpdate(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused")

	body := `{"event":"order_status_updated","store_id":"store-77","order":{"id":"abc123","status":"on_route"}}`
	event, err := adapter.ParseWebhook([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, enums.WebhookEventStatusUpdate, event.EventType)
	assert.Equal(t, enums.OrderStatusOnRoute, event.Status)
	assert.Equal(t, "on_route", event.RawStatus)
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused")

	_, err := adapter.ParseWebhook([]byte("not json"))
	assert.Error(t, err)

	_, err = adapter.ParseWebhook([]byte(`{"event":"order_created","order":{}}`))
	assert.Error(t, err, "missing order id must fail")

	_, err = adapter.ParseWebhook([]byte(`{"event":"mystery","order":{"id":"x"}}`))
	assert.Error(t, err, "unknown event type must fail")
}

func TestMapStatusUnknownFallsBackToConfirmed(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused")

	assert.Equal(t, enums.OrderStatusConfirmed, adapter.mapStatus("weird_new_state"))
	assert.Equal(t, enums.OrderStatusDelivered, adapter.mapStatus("DELIVERED"))
	assert.Equal(t, enums.OrderStatusCancelled, adapter.mapStatus("canceled"))
}

func TestAcceptOrderHitsTakeEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	result := adapter.AcceptOrder(t.Context(), "abc123", 20)

	assert.True(t, result.Success)
	assert.Equal(t, "/orders/abc123/take", gotPath)
	assert.Equal(t, "Bearer token", gotAuth)
}

func TestRejectOrderSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	result := adapter.RejectOrder(t.Context(), "abc123", "out of stock")

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
}

func TestUpdateOrderStatusUnmappableStatus(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused")

	result := adapter.UpdateOrderStatus(t.Context(), "abc123", enums.OrderStatusOpen)
	assert.False(t, result.Success)
}
