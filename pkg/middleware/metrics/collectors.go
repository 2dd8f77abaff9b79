package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsFromRole = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_from_role", Help: "http requests from role"},
		[]string{"role"},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_dispatch_total", Help: "dispatch pipeline outcomes by contract route"},
		[]string{"route", "method", "outcome"},
	)

	backendCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gateway_backend_calls_total", Help: "transaction executor invocations"},
		[]string{"service", "mode", "result"},
	)

	backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_backend_seconds",
			Help:    "transaction executor latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsFromRole,
		totalHttpRequestsToUri,
		totalHttpRequests,
		dispatchTotal,
		backendCalls,
		backendLatency,
	)
}

// CountDispatch records one terminal pipeline state. outcome is "ok" or an
// error kind; callers keep it to a closed set.
func CountDispatch(route, method, outcome string) {
	dispatchTotal.WithLabelValues(route, method, outcome).Inc()
}

// ObserveBackend records one executor call; result is "ok" or "error".
func ObserveBackend(service, mode, result string, d time.Duration) {
	backendCalls.WithLabelValues(service, mode, result).Inc()
	backendLatency.WithLabelValues(service, mode).Observe(d.Seconds())
}
