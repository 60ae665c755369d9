package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSettlementMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.IncTransition("collected")
	m.IncTransition("collected")
	m.IncPayment("succeeded")
	m.IncRefund("partial")
	m.IncPayout("created")
	m.IncWebhook("duplicate")
	m.IncOutboxPublished("ok")
	m.ObserveProcessorCall("create_refund", 120*time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("collected")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.payments.WithLabelValues("succeeded")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.refunds.WithLabelValues("partial")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.payouts.WithLabelValues("created")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.webhookEvents.WithLabelValues("duplicate")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.outboxPublished.WithLabelValues("ok")))
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var m *SettlementMetrics
	require.NotPanics(t, func() {
		m.IncTransition("booked")
		m.IncPayment("")
		m.ObserveProcessorCall("x", time.Second)
	})

	empty := NewSettlementMetrics(nil)
	require.NotPanics(t, func() {
		empty.IncRefund("full")
	})
}
