package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(prepsCreatedTotal, analysisLatency, cacheRequestsTotal) }

var (
	prepsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepme_preps_total",
			Help: "Prep creation attempts by result (created/limited/failed).",
		},
		[]string{"result"},
	)

	analysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prepme_analysis_latency_seconds",
			Help:    "Latency of the profile analysis webhook.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"success"},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepme_cache_requests_total",
			Help: "Cache hits and misses by cache name.",
		},
		[]string{"cache", "result"},
	)
)

func IncPrep(result string) {
	prepsCreatedTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveAnalysis(seconds float64, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	analysisLatency.WithLabelValues(label).Observe(seconds)
}

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
