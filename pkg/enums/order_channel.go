package enums

import "fmt"

// OrderChannel identifies the origin of an order.
type OrderChannel string

const (
	OrderChannelPOS         OrderChannel = "POS"
	OrderChannelWaiter      OrderChannel = "WAITER"
	OrderChannelDeliveryApp OrderChannel = "DELIVERY_APP"
)

var validOrderChannels = []OrderChannel{
	OrderChannelPOS,
	OrderChannelWaiter,
	OrderChannelDeliveryApp,
}

func (c OrderChannel) String() string {
	return string(c)
}

func (c OrderChannel) IsValid() bool {
	for _, candidate := range validOrderChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseOrderChannel converts raw input into an OrderChannel.
func ParseOrderChannel(value string) (OrderChannel, error) {
	for _, candidate := range validOrderChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order channel %q", value)
}
