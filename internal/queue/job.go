package queue

import (
	"fmt"
	"time"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// WebhookJob is one webhook delivery handed from the HTTP edge to the worker.
// Payload is the raw request body; the worker re-parses it through the
// platform adapter so the edge stays a thin, always-200 receiver.
type WebhookJob struct {
	JobID           string                 `json:"job_id"`
	Platform        enums.PlatformCode     `json:"platform"`
	EventType       enums.WebhookEventType `json:"event_type"`
	ExternalOrderID string                 `json:"external_order_id"`
	Payload         []byte                 `json:"payload"`
	ReceivedAt      time.Time              `json:"received_at"`
}

// JobID derives the deterministic id for a delivery. Platform retries of the
// same webhook produce the same id, which is what lets the queue drop them
// before they ever reach the worker.
func JobID(platform enums.PlatformCode, externalOrderID string) string {
	return fmt.Sprintf("%s_%s", platform, externalOrderID)
}
