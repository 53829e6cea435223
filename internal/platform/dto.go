package platform

import (
	"github.com/shopspring/decimal"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// NormalizedOrder is the platform-agnostic shape every adapter produces from
// its raw webhook payload. It only travels from the adapter to the ingestion
// pipeline within one job; nothing persists it.
type NormalizedOrder struct {
	ExternalOrderID string
	ExternalStoreID string
	Items           []NormalizedOrderItem
	Customer        *NormalizedCustomer
	DeliveryAddress *NormalizedAddress
	Subtotal        decimal.Decimal
	DeliveryFee     decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	Notes           string
}

// NormalizedOrderItem carries one cart line in platform-agnostic form.
// UnitPrice is the platform's price and may be overridden by channel pricing
// during ingestion.
type NormalizedOrderItem struct {
	ExternalSKU string
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
	Notes       string
}

// NormalizedCustomer identifies the end customer as far as the platform
// shares it.
type NormalizedCustomer struct {
	Name  string
	Phone string
}

// NormalizedAddress is the delivery destination.
type NormalizedAddress struct {
	Street string
	City   string
	Notes  string
}

// WebhookEvent is the canonical result of parsing a platform webhook.
// Order is set only for ORDER_NEW; Status only for STATUS_UPDATE.
type WebhookEvent struct {
	EventType       enums.WebhookEventType
	ExternalOrderID string
	ExternalStoreID string
	Order           *NormalizedOrder
	Status          enums.OrderStatus
	RawStatus       string
	CancelReason    string
}

// PushResult is the structured outcome of an outbound platform call. Callers
// inspect Success and decide retry policy; adapters never panic or return
// bare transport errors for business-level rejections.
type PushResult struct {
	Success    bool
	StatusCode int
	Detail     string
	Err        error
}

// MenuProduct is one catalog entry for menu sync.
type MenuProduct struct {
	ExternalSKU string
	Name        string
	Category    string
	Price       decimal.Decimal
	Available   bool
}

// AvailabilityUpdate toggles a single product on or off on the platform.
type AvailabilityUpdate struct {
	ExternalSKU string
	Available   bool
}
