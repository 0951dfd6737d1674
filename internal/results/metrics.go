package results

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded on the requests counter.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Cache lookups recorded on the cache counter.
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CachePlaceholder = "placeholder"
)

// Metrics are the Prometheus collectors of the fetch layer. A nil *Metrics
// records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cache    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tekton_results_reader_requests_total",
				Help: "Results API requests by operation, data type and outcome",
			},
			[]string{"operation", "data_type", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tekton_results_reader_request_duration_seconds",
				Help:    "Results API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tekton_results_reader_cache_lookups_total",
				Help: "Response cache lookups by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.requests, m.duration, m.cache)
	return m
}

func (m *Metrics) observeRequest(operation string, dataType DataType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, string(dataType), outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCache(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}
