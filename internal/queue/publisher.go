package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/redis"
)

const dedupScope = "webhook_job"

type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// EnqueueResult reports what happened to a delivery at the edge.
type EnqueueResult struct {
	JobID     string
	Duplicate bool
}

// Publisher pushes webhook jobs onto the broker with redis-backed dedup on
// the deterministic job id.
type Publisher struct {
	pub   messagePublisher
	dedup redis.IdempotencyStore
	cfg   config.QueueConfig
	logg  *logger.Logger
}

// NewPublisher builds a queue publisher.
func NewPublisher(pub messagePublisher, dedup redis.IdempotencyStore, cfg config.QueueConfig, logg *logger.Logger) (*Publisher, error) {
	if pub == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	if dedup == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Publisher{pub: pub, dedup: dedup, cfg: cfg, logg: logg}, nil
}

// Enqueue publishes the job unless the same delivery was already seen within
// the dedup window. Duplicates are reported as success; the platform retried,
// we already have the job.
func (p *Publisher) Enqueue(ctx context.Context, job *WebhookJob) (*EnqueueResult, error) {
	if job == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job required")
	}
	if job.JobID == "" {
		job.JobID = JobID(job.Platform, job.ExternalOrderID)
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now().UTC()
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"job_id":     job.JobID,
		"platform":   job.Platform.String(),
		"event_type": job.EventType.String(),
	})

	key := p.dedup.IdempotencyKey(dedupScope, job.JobID)
	fresh, err := p.dedup.SetNX(ctx, key, job.ReceivedAt.Format(time.RFC3339Nano), p.cfg.DedupTTL)
	if err != nil {
		// Redis being down must not drop webhooks; the order-level unique
		// constraint still catches duplicates downstream.
		p.logg.Warn(p.logg.WithField(ctx, "cause", err.Error()), "dedup store unavailable, enqueuing anyway")
		fresh = true
	}
	if !fresh {
		p.logg.Info(ctx, "duplicate webhook delivery suppressed at enqueue")
		return &EnqueueResult{JobID: job.JobID, Duplicate: true}, nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode webhook job")
	}

	publishCtx := ctx
	if p.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()
	}

	result := p.pub.Publish(publishCtx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_id":     job.JobID,
			"platform":   job.Platform.String(),
			"event_type": job.EventType.String(),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		// Release the dedup claim so the platform's retry can re-enqueue.
		if delErr := p.dedup.Del(context.WithoutCancel(ctx), key); delErr != nil {
			p.logg.Warn(p.logg.WithField(ctx, "cause", delErr.Error()), "failed to release dedup claim after publish error")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish webhook job")
	}

	p.logg.Info(ctx, "webhook job enqueued")
	return &EnqueueResult{JobID: job.JobID}, nil
}
