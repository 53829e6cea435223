package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/middleware"
	"github.com/faacuromano/control-gastronomicoV2-sub000/api/responses"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/queue"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/metrics"
)

// maxBodyBytes caps webhook payloads; platform orders are a few KB.
const maxBodyBytes = 1 << 20

type enqueuer interface {
	Enqueue(ctx context.Context, job *queue.WebhookJob) (*queue.EnqueueResult, error)
}

// receipt is the body the platform gets back. Platforms only care about the
// 200; the job id is for support tickets.
type receipt struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	JobID     string `json:"job_id,omitempty"`
}

// Receive handles POST /webhooks/{platform}. The contract with delivery
// platforms is to answer 200 for nearly everything, even payloads we cannot
// process or platform codes we never wired; failing loudly here only triggers
// platform-side retry storms. The single exception is an invalid signature,
// which gets 403 since replaying it can never succeed.
func Receive(registry *platform.Registry, pub enqueuer, m *metrics.Metrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.RequestIDFrom(ctx)

		rawCode := chi.URLParam(r, "platform")
		code, err := enums.ParsePlatformCode(rawCode)
		if err != nil {
			acknowledgeUnknownPlatform(ctx, logg, m, w, rawCode, requestID)
			return
		}
		ctx = logg.WithPlatform(ctx, code.String())

		adapter, err := registry.Get(code)
		if err != nil {
			acknowledgeUnknownPlatform(ctx, logg, m, w, code.String(), requestID)
			return
		}

		// The signature covers the exact bytes on the wire; read them before
		// anything can touch the body.
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := r.Header.Get(adapter.SignatureHeader())
		if !adapter.ValidateSignature(signature, body) {
			if m != nil {
				m.IncWebhookRejected(code.String(), "signature")
			}
			logg.Warn(ctx, "webhook signature rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid signature"))
			return
		}

		event, err := adapter.ParseWebhook(body)
		if err != nil {
			// Authenticated but unparseable: acknowledge so the platform
			// stops retrying a payload that will never parse.
			if m != nil {
				m.IncWebhookRejected(code.String(), "parse")
			}
			logg.Error(ctx, "webhook payload unparseable", err)
			responses.WriteSuccess(w, receipt{Success: false, RequestID: requestID})
			return
		}

		if m != nil {
			m.IncWebhookReceived(code.String(), event.EventType.String())
		}

		job := &queue.WebhookJob{
			JobID:           queue.JobID(code, event.ExternalOrderID),
			Platform:        code,
			EventType:       event.EventType,
			ExternalOrderID: event.ExternalOrderID,
			Payload:         body,
			ReceivedAt:      time.Now().UTC(),
		}
		result, err := pub.Enqueue(ctx, job)
		if err != nil {
			// Broker down. A 5xx is the one honest answer left: the platform
			// will redeliver and dedup absorbs the replay.
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, receipt{
			Success:   true,
			RequestID: requestID,
			JobID:     result.JobID,
		})
	}
}

// acknowledgeUnknownPlatform answers 200 with success:false for a platform
// code we cannot resolve. There is no adapter and thus no signature to check,
// so the body is never read; the receipt just stops the sender from retrying
// a URL that will never work. The raw code goes to the log only — it comes
// off the request path, so it must not become a metric label.
func acknowledgeUnknownPlatform(ctx context.Context, logg *logger.Logger, m *metrics.Metrics, w http.ResponseWriter, code, requestID string) {
	if m != nil {
		m.IncWebhookRejected("unknown", "unknown_platform")
	}
	logg.Warn(logg.WithField(ctx, "platform", code), "webhook for unresolvable platform")
	responses.WriteSuccess(w, receipt{Success: false, RequestID: requestID})
}
