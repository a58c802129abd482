package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	ArticleViews       prometheus.Counter
	ArticleTransitions *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	Visits             prometheus.Counter
	VisitorsPurged     prometheus.Counter
	FeedSubscribers    prometheus.Gauge
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ArticleViews: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_article_views_total",
			Help: "Article views counted after session de-duplication",
		}),
		ArticleTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_article_transitions_total",
			Help: "Article status changes by target status",
		}, []string{"to"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Visits: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_visits_recorded_total",
			Help: "Visitor analytics rows written",
		}),
		VisitorsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_visitor_rows_purged_total",
			Help: "Visitor analytics rows removed by the retention sweeper",
		}),
		FeedSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "newsdesk_realtime_subscribers",
			Help: "Open realtime websocket connections",
		}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
