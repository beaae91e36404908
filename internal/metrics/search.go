package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/riahunter/internal/domain/search/signal"
)

// SearchMetrics records query outcomes and absorbed retrieval failures.
// It satisfies the search service's Recorder.
type SearchMetrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	failures *prometheus.CounterVec
	fallback prometheus.Counter
	returned prometheus.Histogram
}

// NewSearchMetrics creates the search collectors and registers them on reg.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	m := &SearchMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Search queries by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_retrieval_failures_total",
				Help:      "Retrieval signals that failed and were dropped from fusion",
			},
			[]string{"signal", "reason"},
		),
		fallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallback_results_total",
			Help:      "Results filled from the AUM-ordered fallback",
		}),
		returned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_returned",
			Help:      "Results returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.failures, m.fallback, m.returned)
	return m
}

// RetrievalFailed counts a dropped signal.
func (m *SearchMetrics) RetrievalFailed(kind signal.Kind, reason string) {
	m.failures.WithLabelValues(string(kind), reason).Inc()
}

// SearchCompleted records one finished query.
func (m *SearchMetrics) SearchCompleted(outcome string, elapsed time.Duration, returned, fallback int) {
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.returned.Observe(float64(returned))
	if fallback > 0 {
		m.fallback.Add(float64(fallback))
	}
}
