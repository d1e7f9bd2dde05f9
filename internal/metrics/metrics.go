package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the statusync Prometheus collectors
type Metrics struct {
	Deliveries      *prometheus.CounterVec
	DeliveryErrors  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusync_deliveries_total",
			Help: "Alert deliveries by reconciliation outcome",
		}, []string{"outcome"}),
		DeliveryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusync_delivery_errors_total",
			Help: "Failed alert deliveries by error kind",
		}, []string{"kind"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statusync_statuspage_request_duration_seconds",
			Help:    "Status page API request latency by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusync_statuspage_request_errors_total",
			Help: "Failed status page API requests by operation",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.Deliveries, m.DeliveryErrors, m.RequestDuration, m.RequestErrors)
	}
	return m
}

// RecordDelivery counts one delivery
func (m *Metrics) RecordDelivery(outcome, errorKind string) {
	m.Deliveries.WithLabelValues(outcome).Inc()
	if errorKind != "" {
		m.DeliveryErrors.WithLabelValues(errorKind).Inc()
	}
}

// ObserveRequest records one status page API call
func (m *Metrics) ObserveRequest(op string, d time.Duration, err error) {
	m.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.RequestErrors.WithLabelValues(op).Inc()
	}
}
