package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the simulator's Prometheus instruments. Instruments
// are registered on a private registry so multiple simulations can
// coexist in one process (tests in particular).
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal     *prometheus.CounterVec
	AnomalyTotal    *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	PublishRetries  prometheus.Counter
	PublishLatency  prometheus.Histogram
	AnomalyAssets   prometheus.Gauge
}

// NewMetrics creates and registers all instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetsim_events_total",
			Help: "Events generated per asset, delivered or not.",
		}, []string{"asset_id"}),
		AnomalyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetsim_anomaly_events_total",
			Help: "Events generated while the asset was in anomaly mode.",
		}, []string{"asset_id"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetsim_publish_failures_total",
			Help: "Cycles whose delivery failed after exhausting retries.",
		}, []string{"asset_id"}),
		PublishRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assetsim_publish_retries_total",
			Help: "Retry attempts spent across all publishes.",
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetsim_publish_latency_seconds",
			Help:    "Wall time of one publish call including retries.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		AnomalyAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assetsim_assets_in_anomaly_mode",
			Help: "Number of assets currently in anomaly mode.",
		}),
	}

	m.registry.MustRegister(
		m.EventsTotal, m.AnomalyTotal, m.PublishFailures,
		m.PublishRetries, m.PublishLatency, m.AnomalyAssets,
	)
	return m
}

// Handler returns the exposition endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for test assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
