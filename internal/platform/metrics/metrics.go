package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the service.
type Metrics struct {
	CartMutations      *prometheus.CounterVec
	ThrottleRejections *prometheus.CounterVec
	SessionsMinted     prometheus.Counter
	SessionsRotated    prometheus.Counter
	MaskedRenders      *prometheus.CounterVec
	AuditRecorded      prometheus.Counter
	AuditDropped       prometheus.Counter
	AuditRetries       prometheus.Counter
	AuditQueueDepth    prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CartMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitrine_cart_mutations_total",
			Help: "Cart mutation operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		ThrottleRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitrine_throttle_rejections_total",
			Help: "Requests rejected by the in-process rate limiter, by action.",
		}, []string{"action"}),
		SessionsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitrine_guest_sessions_minted_total",
			Help: "Anonymous guest session tokens minted.",
		}),
		SessionsRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitrine_guest_sessions_rotated_total",
			Help: "Guest session tokens rotated after expiry.",
		}),
		MaskedRenders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitrine_field_renders_total",
			Help: "Sensitive field renders by class and whether the value was masked.",
		}, []string{"class", "masked"}),
		AuditRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitrine_audit_events_recorded_total",
			Help: "Audit events durably appended to the log.",
		}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitrine_audit_events_dropped_total",
			Help: "Audit events dropped after queue overflow or exhausted retries.",
		}),
		AuditRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitrine_audit_append_retries_total",
			Help: "Retried audit store appends.",
		}),
		AuditQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vitrine_audit_queue_depth",
			Help: "Current depth of the audit recorder queue.",
		}),
	}
}
