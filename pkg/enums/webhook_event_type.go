package enums

import "fmt"

// WebhookEventType classifies a normalized delivery-platform event.
type WebhookEventType string

const (
	WebhookEventOrderNew       WebhookEventType = "ORDER_NEW"
	WebhookEventOrderCancelled WebhookEventType = "ORDER_CANCELLED"
	WebhookEventStatusUpdate   WebhookEventType = "STATUS_UPDATE"
)

var validWebhookEventTypes = []WebhookEventType{
	WebhookEventOrderNew,
	WebhookEventOrderCancelled,
	WebhookEventStatusUpdate,
}

func (t WebhookEventType) String() string {
	return string(t)
}

func (t WebhookEventType) IsValid() bool {
	for _, candidate := range validWebhookEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWebhookEventType converts raw input into a WebhookEventType.
func ParseWebhookEventType(value string) (WebhookEventType, error) {
	for _, candidate := range validWebhookEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event type %q", value)
}
