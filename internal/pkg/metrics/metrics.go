package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for billing and background work.
type Metrics struct {
	webhookDeliveries *prometheus.CounterVec
	reconciliations   *prometheus.CounterVec
	gatewayErrors     *prometheus.CounterVec
	jobs              *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
// Collectors are created once so repeated service construction never
// panics on duplicate registration.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew constructs Metrics against reg, panicking on registration errors.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		webhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketplace",
				Subsystem: "billing",
				Name:      "webhook_deliveries_total",
				Help:      "Webhook notifications received, by event type.",
			},
			[]string{"type"},
		),
		reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketplace",
				Subsystem: "billing",
				Name:      "reconciliations_total",
				Help:      "Reconciliation attempts, by resource kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		gatewayErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketplace",
				Subsystem: "billing",
				Name:      "gateway_errors_total",
				Help:      "Failed payment gateway calls, by operation.",
			},
			[]string{"op"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketplace",
				Subsystem: "jobqueue",
				Name:      "jobs_total",
				Help:      "Background jobs finished, by type and result.",
			},
			[]string{"type", "result"},
		),
	}

	for _, c := range []prometheus.Collector{m.webhookDeliveries, m.reconciliations, m.gatewayErrors, m.jobs} {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				// Reuse the collector registered earlier under the same name.
				switch c {
				case m.webhookDeliveries:
					m.webhookDeliveries = are.ExistingCollector.(*prometheus.CounterVec)
				case m.reconciliations:
					m.reconciliations = are.ExistingCollector.(*prometheus.CounterVec)
				case m.gatewayErrors:
					m.gatewayErrors = are.ExistingCollector.(*prometheus.CounterVec)
				case m.jobs:
					m.jobs = are.ExistingCollector.(*prometheus.CounterVec)
				}
				continue
			}
			panic(err)
		}
	}
	return m
}

// WebhookReceived counts a delivery. The type comes from an unauthenticated
// request, so anything but the two gateway event types is counted as "other".
func (m *Metrics) WebhookReceived(eventType string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(webhookTypeLabel(eventType)).Inc()
}

func webhookTypeLabel(eventType string) string {
	switch eventType {
	case "subscription_preapproval", "payment":
		return eventType
	}
	return "other"
}

// Reconciled records one reconciliation; outcome is "applied", "skipped" or "failed".
func (m *Metrics) Reconciled(kind, outcome string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) GatewayError(op string) {
	if m == nil {
		return
	}
	m.gatewayErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) JobFinished(jobType string, ok bool) {
	if m == nil {
		return
	}
	result := "completed"
	if !ok {
		result = "failed"
	}
	m.jobs.WithLabelValues(jobType, result).Inc()
}
