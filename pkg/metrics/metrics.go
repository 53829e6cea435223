package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records counters and latencies for the webhook and ordering paths.
type Metrics struct {
	webhookReceived     *prometheus.CounterVec
	webhookRejected     *prometheus.CounterVec
	webhookDuplicate    *prometheus.CounterVec
	allocatorDuration   *prometheus.HistogramVec
	allocatorRetries    *prometheus.CounterVec
	allocatorExhausted  *prometheus.CounterVec
	ordersCreated       *prometheus.CounterVec
	stateTransitionFail *prometheus.CounterVec
}

// New registers the service metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	webhookReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_received_total",
		Help: "Webhook deliveries accepted past signature validation.",
	}, []string{"platform", "event_type"})
	webhookRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_rejected_total",
		Help: "Webhook deliveries rejected before processing.",
	}, []string{"platform", "reason"})
	webhookDuplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicate_total",
		Help: "Webhook deliveries discarded as retries of an already-processed event.",
	}, []string{"platform"})
	allocatorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sequence_allocation_duration_seconds",
		Help:    "Latency of order number allocation including retries.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"shard"})
	allocatorRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sequence_allocation_retries_total",
		Help: "Allocation attempts retried after lock or serialization conflicts.",
	}, []string{"shard"})
	allocatorExhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sequence_allocation_exhausted_total",
		Help: "Allocations that failed after the final retry.",
	}, []string{"shard"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, labeled by originating channel.",
	}, []string{"channel"})
	stateTransitionFail := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transition_rejected_total",
		Help: "Order status transitions rejected by the state machine.",
	}, []string{"from", "to"})
	reg.MustRegister(
		webhookReceived,
		webhookRejected,
		webhookDuplicate,
		allocatorDuration,
		allocatorRetries,
		allocatorExhausted,
		ordersCreated,
		stateTransitionFail,
	)
	return &Metrics{
		webhookReceived:     webhookReceived,
		webhookRejected:     webhookRejected,
		webhookDuplicate:    webhookDuplicate,
		allocatorDuration:   allocatorDuration,
		allocatorRetries:    allocatorRetries,
		allocatorExhausted:  allocatorExhausted,
		ordersCreated:       ordersCreated,
		stateTransitionFail: stateTransitionFail,
	}
}

// IncWebhookReceived counts an accepted webhook delivery.
func (m *Metrics) IncWebhookReceived(platform, eventType string) {
	if m == nil || m.webhookReceived == nil {
		return
	}
	m.webhookReceived.WithLabelValues(normalizeLabel(platform), normalizeLabel(eventType)).Inc()
}

// IncWebhookRejected counts a rejected webhook delivery.
func (m *Metrics) IncWebhookRejected(platform, reason string) {
	if m == nil || m.webhookRejected == nil {
		return
	}
	m.webhookRejected.WithLabelValues(normalizeLabel(platform), normalizeLabel(reason)).Inc()
}

// IncWebhookDuplicate counts a delivery discarded as a duplicate.
func (m *Metrics) IncWebhookDuplicate(platform string) {
	if m == nil || m.webhookDuplicate == nil {
		return
	}
	m.webhookDuplicate.WithLabelValues(normalizeLabel(platform)).Inc()
}

// ObserveAllocation records one allocation's end-to-end latency.
func (m *Metrics) ObserveAllocation(shard string, duration time.Duration) {
	if m == nil || m.allocatorDuration == nil {
		return
	}
	m.allocatorDuration.WithLabelValues(normalizeLabel(shard)).Observe(duration.Seconds())
}

// IncAllocationRetry counts a retried allocation attempt.
func (m *Metrics) IncAllocationRetry(shard string) {
	if m == nil || m.allocatorRetries == nil {
		return
	}
	m.allocatorRetries.WithLabelValues(normalizeLabel(shard)).Inc()
}

// IncAllocationExhausted counts an allocation that ran out of retries.
func (m *Metrics) IncAllocationExhausted(shard string) {
	if m == nil || m.allocatorExhausted == nil {
		return
	}
	m.allocatorExhausted.WithLabelValues(normalizeLabel(shard)).Inc()
}

// IncOrderCreated counts a created order by channel.
func (m *Metrics) IncOrderCreated(channel string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncTransitionRejected counts a state machine rejection.
func (m *Metrics) IncTransitionRejected(from, to string) {
	if m == nil || m.stateTransitionFail == nil {
		return
	}
	m.stateTransitionFail.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
