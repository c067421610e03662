package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox delivery results.
const (
	DeliveryPublished    = "published"
	DeliveryRetried      = "retried"
	DeliveryDeadLettered = "dead_lettered"
)

// OutboxMetrics counts outbox rows by delivery result and the size of each
// claimed batch.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	batchSize  prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics. A nil registerer yields a
// no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quoteflow_outbox_deliveries_total",
			Help: "Outbox rows handled by the publisher, by event type and result.",
		}, []string{"event_type", "result"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quoteflow_outbox_batch_rows",
			Help:    "Rows claimed per publisher batch.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
	reg.MustRegister(m.deliveries, m.batchSize)
	return m
}

// Delivery counts one row outcome.
func (m *OutboxMetrics) Delivery(eventType, result string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), result).Inc()
}

// Batch records how many rows a non-empty batch claimed.
func (m *OutboxMetrics) Batch(rows int) {
	if m == nil || m.batchSize == nil || rows <= 0 {
		return
	}
	m.batchSize.Observe(float64(rows))
}
