// Package metrics exposes the gateway's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "igproxy"

// Metrics holds the gateway's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	rateLimited      prometheus.Counter
	upstreamRequests *prometheus.CounterVec
	upstreamDuration prometheus.Histogram
	limiterEntries   prometheus.Gauge
	limiterPruned    prometheus.Counter
}

// New creates and registers all collectors. Process and Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
			collectors.NewGoCollector(),
		)
	}

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Gateway requests by status code and error code.",
		}, []string{"status", "error_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent handling gateway requests.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream extraction calls by outcome.",
		}, []string{"outcome"}),
		upstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of upstream extraction calls.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		limiterEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "tracked_identities",
			Help:      "Identities currently tracked by the rate limiter.",
		}),
		limiterPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "pruned_total",
			Help:      "Expired rate limit entries removed by the janitor.",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.rateLimited,
		m.upstreamRequests,
		m.upstreamDuration,
		m.limiterEntries,
		m.limiterPruned,
	)
	return m
}

// ObserveRequest records a finished gateway request
func (m *Metrics) ObserveRequest(route string, status int, errorCode string, d time.Duration) {
	m.requests.WithLabelValues(strconv.Itoa(status), errorCode).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// IncRateLimited counts a request rejected with 429
func (m *Metrics) IncRateLimited() {
	m.rateLimited.Inc()
}

// ObserveUpstream records an upstream call. Its signature matches
// instagram.Observer.
func (m *Metrics) ObserveUpstream(outcome string, d time.Duration) {
	m.upstreamRequests.WithLabelValues(outcome).Inc()
	m.upstreamDuration.Observe(d.Seconds())
}

// ObservePrune records a janitor pass over the limiter
func (m *Metrics) ObservePrune(removed, remaining int) {
	m.limiterPruned.Add(float64(removed))
	m.limiterEntries.Set(float64(remaining))
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
