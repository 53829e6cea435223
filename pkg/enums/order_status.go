package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusOpen          OrderStatus = "OPEN"
	OrderStatusConfirmed     OrderStatus = "CONFIRMED"
	OrderStatusInPreparation OrderStatus = "IN_PREPARATION"
	OrderStatusPrepared      OrderStatus = "PREPARED"
	OrderStatusOnRoute       OrderStatus = "ON_ROUTE"
	OrderStatusDelivered     OrderStatus = "DELIVERED"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusOpen,
	OrderStatusConfirmed,
	OrderStatusInPreparation,
	OrderStatusPrepared,
	OrderStatusOnRoute,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further forward progress.
// DELIVERED is terminal except for the explicit late-item reopen path.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
