package metrics

import "github.com/prometheus/client_golang/prometheus"

// Protocol engine Prometheus metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protobench",
			Name:      "model_requests_total",
			Help:      "Total number of model generation requests",
		},
		[]string{"model", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "protobench",
			Name:      "model_request_duration_seconds",
			Help:      "Model generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protobench",
			Name:      "model_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"model"},
	)

	ProtocolRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protobench",
			Name:      "protocol_runs_total",
			Help:      "Completed protocol runs",
		},
		[]string{"protocol", "status"}, // status: "success" / "failed"
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "protobench",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers engine Prometheus metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelRequestsTotal)
	prometheus.MustRegister(ModelRequestDuration)
	prometheus.MustRegister(ModelTokensTotal)
	prometheus.MustRegister(ProtocolRunsTotal)
	prometheus.MustRegister(ResultCacheTotal)
	engineMetricsRegistered = true
}
