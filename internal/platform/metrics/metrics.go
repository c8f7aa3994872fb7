package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-wide Prometheus metrics. Domain packages
// receive a *Metrics and record through it; a nil receiver is a no-op so
// tests can skip metric wiring.
type Metrics struct {
	WebhooksReceived *prometheus.CounterVec
	WebhooksRejected *prometheus.CounterVec
	UsersSynced      *prometheus.CounterVec
	AccessDenied     *prometheus.CounterVec
	SyncDuration     prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		WebhooksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admitto_webhooks_received_total",
			Help: "Identity webhooks received, by event type",
		}, []string{"type"}),
		WebhooksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admitto_webhooks_rejected_total",
			Help: "Identity webhooks rejected before any state change, by reason",
		}, []string{"reason"}),
		UsersSynced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admitto_users_synced_total",
			Help: "Identity sync transitions applied, by outcome",
		}, []string{"outcome"}),
		AccessDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admitto_access_denied_total",
			Help: "Authorization gate denials, by reason",
		}, []string{"reason"}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "admitto_identity_sync_duration_seconds",
			Help:    "Latency of identity sync transitions",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordWebhookReceived(eventType string) {
	if m == nil {
		return
	}
	m.WebhooksReceived.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordWebhookRejected(reason string) {
	if m == nil {
		return
	}
	m.WebhooksRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordUserSynced(outcome string) {
	if m == nil {
		return
	}
	m.UsersSynced.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAccessDenied(reason string) {
	if m == nil {
		return
	}
	m.AccessDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveSyncDuration(seconds float64) {
	if m == nil {
		return
	}
	m.SyncDuration.Observe(seconds)
}
