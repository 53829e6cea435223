package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Event is the payload published for kitchen displays. Kind is "order:new"
// or "order:update"; the tenant attribute scopes subscriber filtering.
type Event struct {
	Kind        string    `json:"kind"`
	TenantID    string    `json:"tenant_id"`
	OrderID     string    `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	Status      string    `json:"status"`
	At          time.Time `json:"at"`
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Notifier publishes kitchen events fire-and-forget. A dead broker or absent
// subscriber never affects order creation; failures are logged and dropped.
type Notifier struct {
	pub  publisher
	logg *logger.Logger
}

// NewNotifier builds a Notifier. pub may be nil, which disables publishing
// entirely (single-screen installs without a broker).
func NewNotifier(pub publisher, logg *logger.Logger) (*Notifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Notifier{pub: pub, logg: logg}, nil
}

// OrderCreated announces a new ticket.
func (n *Notifier) OrderCreated(ctx context.Context, order *models.Order) {
	n.publish(ctx, "order:new", order)
}

// OrderUpdated announces a status change.
func (n *Notifier) OrderUpdated(ctx context.Context, order *models.Order) {
	n.publish(ctx, "order:update", order)
}

func (n *Notifier) publish(ctx context.Context, kind string, order *models.Order) {
	if n.pub == nil || order == nil {
		return
	}

	event := Event{
		Kind:        kind,
		TenantID:    order.TenantID.String(),
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Status:      order.Status.String(),
		At:          time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.logg.Error(ctx, "encode kitchen event", err)
		return
	}

	result := n.pub.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":      kind,
			"tenant_id": event.TenantID,
		},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			bgCtx := n.logg.WithFields(context.Background(), map[string]any{
				"tenant_id": event.TenantID,
				"order_id":  event.OrderID,
				"kind":      kind,
			})
			n.logg.Error(bgCtx, "kitchen event publish failed", err)
		}
	}()
}
