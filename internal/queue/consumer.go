package queue

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Handler processes one webhook job. A nil return or a non-retryable error
// acks the message; a retryable error nacks it for redelivery.
type Handler interface {
	Handle(ctx context.Context, job *WebhookJob) error
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer pulls webhook jobs and dispatches them to the handler.
type Consumer struct {
	sub     subscriber
	handler Handler
	logg    *logger.Logger
}

// NewConsumer builds a queue consumer.
func NewConsumer(sub subscriber, handler Handler, logg *logger.Logger) (*Consumer, error) {
	if sub == nil {
		return nil, fmt.Errorf("pubsub subscriber required")
	}
	if handler == nil {
		return nil, fmt.Errorf("job handler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{sub: sub, handler: handler, logg: logg}, nil
}

// Run blocks receiving messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logg.Info(ctx, "webhook job consumer started")
	err := c.sub.Receive(ctx, c.process)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receiving webhook jobs: %w", err)
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) {
	var job WebhookJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		// Poison message; redelivery cannot fix a body we cannot decode.
		ctx = c.logg.WithField(ctx, "message_id", msg.ID)
		c.logg.Error(ctx, "dropping undecodable webhook job", err)
		msg.Ack()
		return
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"job_id":     job.JobID,
		"platform":   job.Platform.String(),
		"event_type": job.EventType.String(),
	})

	err := c.handler.Handle(ctx, &job)
	if err == nil {
		msg.Ack()
		return
	}

	if pkgerrors.Retryable(err) {
		c.logg.Warn(c.logg.WithField(ctx, "cause", err.Error()), "webhook job failed, nacking for redelivery")
		msg.Nack()
		return
	}

	// Non-retryable failures are final: ack so the subscription does not
	// spin on a job that will never succeed. The outcome is already in the
	// webhook_events audit trail.
	c.logg.Error(ctx, "webhook job failed permanently", err)
	msg.Ack()
}
