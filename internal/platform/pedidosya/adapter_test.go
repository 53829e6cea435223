package pedidosya

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

const testSecret = "peya-secret"

func newTestAdapter(t *testing.T, baseURL, authURL string) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(config.PedidosYaConfig{
		WebhookSecret: testSecret,
		BaseURL:       baseURL,
		AuthURL:       authURL,
		ClientID:      "client",
		ClientSecret:  "secret",
	}, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return adapter
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

const newOrderBody = `{
	"action": "NEW_ORDER",
	"restaurant": {"id": "rest-42"},
	"order": {
		"id": "py-9001",
		"notes": "timbre roto, llamar",
		"customer": {"name": "Ana", "phone": "+5491122222222"},
		"address": {"street": "Av. Corrientes 1234", "city": "CABA", "description": "piso 3"},
		"details": [
			{"product": {"integrationCode": "P1", "name": "Pizza muzzarella", "unitPrice": "8500"}, "quantity": 2},
			{"product": {"integrationCode": "P2", "name": "Faina", "unitPrice": "1500"}, "quantity": 1, "notes": "bien cocida"}
		],
		"subtotal": "18500",
		"shippingFee": "1200",
		"discount": "500",
		"total": "19200"
	}
}`

func TestValidateSignature(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused", "http://unused")
	body := []byte(newOrderBody)

	assert.True(t, adapter.ValidateSignature(signBody(body), body))
	assert.False(t, adapter.ValidateSignature(signBody([]byte("tampered")), body))
	assert.False(t, adapter.ValidateSignature("", body))
	assert.False(t, adapter.ValidateSignature("!!not-base64!!", body))
}

func TestParseWebhookNewOrder(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused", "http://unused")

	event, err := adapter.ParseWebhook([]byte(newOrderBody))
	require.NoError(t, err)

	assert.Equal(t, enums.WebhookEventOrderNew, event.EventType)
	assert.Equal(t, "py-9001", event.ExternalOrderID)
	assert.Equal(t, "rest-42", event.ExternalStoreID)

	require.NotNil(t, event.Order)
	require.Len(t, event.Order.Items, 2)
	assert.Equal(t, "P1", event.Order.Items[0].ExternalSKU)
	assert.Equal(t, 2, event.Order.Items[0].Quantity)
	assert.True(t, event.Order.Items[0].UnitPrice.Equal(decimal.RequireFromString("8500")))
	assert.Equal(t, "bien cocida", event.Order.Items[1].Notes)
	assert.True(t, event.Order.Total.Equal(decimal.RequireFromString("19200")))
	require.NotNil(t, event.Order.DeliveryAddress)
	assert.Equal(t, "Av. Corrientes 1234", event.Order.DeliveryAddress.Street)
}

func TestParseWebhookStateChanged(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused", "http://unused")

	body := `{"action":"STATE_CHANGED","restaurant":{"id":"rest-42"},"order":{"id":"py-9001","state":"IN_DELIVERY"}}`
	event, err := adapter.ParseWebhook([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, enums.WebhookEventStatusUpdate, event.EventType)
	assert.Equal(t, enums.OrderStatusOnRoute, event.Status)
}

func TestParseWebhookCancellation(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused", "http://unused")

	body := `{"action":"ORDER_CANCELLED","restaurant":{"id":"rest-42"},"order":{"id":"py-9001","reason":"rider unavailable"}}`
	event, err := adapter.ParseWebhook([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, enums.WebhookEventOrderCancelled, event.EventType)
	assert.Equal(t, "rider unavailable", event.CancelReason)
}

func TestParseWebhookRejectsUnknownAction(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused", "http://unused")

	_, err := adapter.ParseWebhook([]byte(`{"action":"MENU_APPROVED","order":{"id":"py-9001"}}`))
	assert.Error(t, err)

	_, err = adapter.ParseWebhook([]byte(`{"action":"NEW_ORDER","order":{}}`))
	assert.Error(t, err, "missing order id must fail")
}

func TestMapStatusUnknownFallsBackToConfirmed(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused", "http://unused")

	assert.Equal(t, enums.OrderStatusConfirmed, adapter.mapStatus("SOME_NEW_STATE"))
	assert.Equal(t, enums.OrderStatusCancelled, adapter.mapStatus("rejected"))
	assert.Equal(t, enums.OrderStatusDelivered, adapter.mapStatus("completed"))
}

func TestAcceptOrderAuthenticatesFirst(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}))
	defer auth.Close()

	var gotPath, gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	adapter := newTestAdapter(t, api.URL, auth.URL)
	result := adapter.AcceptOrder(t.Context(), "py-9001", 25)

	assert.True(t, result.Success)
	assert.Equal(t, "/orders/py-9001/confirmation", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestUnauthorizedResponseInvalidatesToken(t *testing.T) {
	tokens := 0
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	adapter := newTestAdapter(t, api.URL, auth.URL)

	result := adapter.RejectOrder(t.Context(), "py-9001", "kitchen closed")
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)

	// The 401 dropped the cached token, so the next push re-authenticates.
	adapter.RejectOrder(t.Context(), "py-9001", "kitchen closed")
	assert.Equal(t, 2, tokens)
}

func TestUpdateOrderStatusUnmappableStatus(t *testing.T) {
	adapter := newTestAdapter(t, "http://unused", "http://unused")

	result := adapter.UpdateOrderStatus(t.Context(), "py-9001", enums.OrderStatusOpen)
	assert.False(t, result.Success)
}
