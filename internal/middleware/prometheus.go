package middleware

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burpgpt_passive_audits_total",
			Help: "Passive audits by outcome",
		},
		[]string{"outcome"},
	)

	auditDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burpgpt_passive_audit_duration_seconds",
			Help:    "Passive audit duration including the upstream call",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
	)

	httpResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burpgpt_http_responses_total",
			Help: "HTTP responses by method and status class",
		},
		[]string{"method", "class"},
	)
)

func observeAudit(outcome string, d time.Duration) {
	auditOutcomes.WithLabelValues(outcome).Inc()
	auditDuration.Observe(d.Seconds())
}

func observeResponse(method string, status int) {
	class := "5xx"
	switch {
	case status < 300:
		class = "2xx"
	case status < 400:
		class = "3xx"
	case status < 500:
		class = "4xx"
	}
	httpResponses.WithLabelValues(method, class).Inc()
}

// PrometheusHandler serves the default registry in the text exposition format
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
