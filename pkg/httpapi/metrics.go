package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the collectors exposed on /metrics. Each server owns its
// registry so several can live in one process.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	served   prometheus.Counter
	limited  prometheus.Counter
}

// StatsFunc reports named counters, such as suggest.Service.Stats or
// store.Batcher.Stats.
type StatsFunc func() map[string]int

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatserve",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "heatserve",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		served: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heatserve",
			Name:      "suggestions_served_total",
			Help:      "Suggestions returned by prefix searches.",
		}),
		limited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heatserve",
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.served, m.limited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterStats exposes every key of fn as a gauge named
// heatserve_<subsystem>_<key>. Keys are read once to build the gauges.
func (m *Metrics) RegisterStats(subsystem string, fn StatsFunc) {
	for key := range fn() {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "heatserve",
			Subsystem: subsystem,
			Name:      key,
			Help:      "Reported by the " + subsystem + " stats.",
		}, func() float64 { return float64(fn()[key]) }))
	}
}
