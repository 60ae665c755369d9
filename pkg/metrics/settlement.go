package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics counts the money-moving operations of the engine.
type SettlementMetrics struct {
	transitions     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	payouts         *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	processorCalls  *prometheus.HistogramVec
	outboxPublished *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions applied, labelled by target status.",
	}, []string{"to_status"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Payment records by final status.",
	}, []string{"status"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Refunds issued, labelled full or partial.",
	}, []string{"kind"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payouts_total",
		Help: "Payout rows by lifecycle event.",
	}, []string{"event"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Processor webhook deliveries, labelled by outcome.",
	}, []string{"outcome"})
	processorCalls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "processor_call_duration_seconds",
		Help:    "Latency of outbound payment processor calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outboxPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published, labelled by result.",
	}, []string{"result"})
	reg.MustRegister(transitions, payments, refunds, payouts, webhookEvents, processorCalls, outboxPublished)
	return &SettlementMetrics{
		transitions:     transitions,
		payments:        payments,
		refunds:         refunds,
		payouts:         payouts,
		webhookEvents:   webhookEvents,
		processorCalls:  processorCalls,
		outboxPublished: outboxPublished,
	}
}

// IncTransition records one applied order transition.
func (m *SettlementMetrics) IncTransition(toStatus string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// IncPayment records a payment reaching the given status.
func (m *SettlementMetrics) IncPayment(status string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncRefund records a refund; kind is "full" or "partial".
func (m *SettlementMetrics) IncRefund(kind string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncPayout records a payout lifecycle event ("created", "paid").
func (m *SettlementMetrics) IncPayout(event string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncWebhook records a webhook delivery outcome ("applied", "duplicate", "failed").
func (m *SettlementMetrics) IncWebhook(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveProcessorCall records the latency of one outbound processor call.
func (m *SettlementMetrics) ObserveProcessorCall(operation string, duration time.Duration) {
	if m == nil || m.processorCalls == nil {
		return
	}
	m.processorCalls.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncOutboxPublished records one publish attempt result ("ok", "error").
func (m *SettlementMetrics) IncOutboxPublished(result string) {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
