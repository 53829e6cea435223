package enums

import "fmt"

// OrderItemStatus tracks a single line item through the kitchen.
type OrderItemStatus string

const (
	OrderItemStatusPending OrderItemStatus = "PENDING"
	OrderItemStatusCooking OrderItemStatus = "COOKING"
	OrderItemStatusReady   OrderItemStatus = "READY"
	OrderItemStatusServed  OrderItemStatus = "SERVED"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusCooking,
	OrderItemStatusReady,
	OrderItemStatusServed,
}

func (s OrderItemStatus) String() string {
	return string(s)
}

func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
