package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	Registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	ClientsCreated  prometheus.Counter
	TagsAttached    prometheus.Counter
	Searches        *prometheus.CounterVec
	OverviewCache   *prometheus.CounterVec
	WebhookFailures prometheus.Counter
}

// New creates the collectors on a fresh registry, so several instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crm_http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds, labeled by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		ClientsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_clients_created_total",
			Help: "Total number of clients created",
		}),
		TagsAttached: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_client_tags_attached_total",
			Help: "Total number of tags attached to clients",
		}),
		// filtered is "true" when a status filter narrowed the search
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_client_searches_total",
			Help: "Total number of client list requests",
		}, []string{"filtered"}),
		OverviewCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_overview_cache_total",
			Help: "Overview cache lookups, labeled by result (hit, miss, error)",
		}, []string{"result"}),
		WebhookFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_webhook_failures_total",
			Help: "Total number of webhook deliveries that failed",
		}),
	}
}

// ObserveSearch counts one client list request.
func (m *Metrics) ObserveSearch(filtered bool) {
	if filtered {
		m.Searches.WithLabelValues("true").Inc()
		return
	}
	m.Searches.WithLabelValues("false").Inc()
}

// ObserveCache counts one overview cache lookup.
func (m *Metrics) ObserveCache(result string) {
	m.OverviewCache.WithLabelValues(result).Inc()
}
