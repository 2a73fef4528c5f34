package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	LinksRequested    prometheus.Counter
	LinksApproved     prometheus.Counter
	LinksDenied       prometheus.Counter
	LinksRevoked      prometheus.Counter
	LinksExpired      prometheus.Counter
	GuardianReads     prometheus.Counter
	CodeFailures      *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	RequestLatency    *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg. Tests pass a fresh
// prometheus.NewRegistry so parallel constructions never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LinksRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "kindred_links_requested_total",
			Help: "Guardian link requests created",
		}),
		LinksApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "kindred_links_approved_total",
			Help: "Links approved by the child",
		}),
		LinksDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "kindred_links_denied_total",
			Help: "Links denied by the child",
		}),
		LinksRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "kindred_links_revoked_total",
			Help: "Active links revoked by either party",
		}),
		LinksExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "kindred_links_expired_total",
			Help: "Pending links expired past their code deadline",
		}),
		GuardianReads: factory.NewCounter(prometheus.CounterOpts{
			Name: "kindred_guardian_reads_total",
			Help: "Successful permission-scoped reads of child data",
		}),
		CodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kindred_code_failures_total",
			Help: "Verification code failures by reason",
		}, []string{"reason"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kindred_notifications_sent_total",
			Help: "Notifications created by type",
		}, []string{"type"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kindred_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
