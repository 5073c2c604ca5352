package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Audit outcomes, also used as the Prometheus "outcome" label
const (
	OutcomeInsight        = "insight"
	OutcomeFailed         = "failed"
	OutcomeTransportError = "transport_error"
)

// Metrics holds the process-wide counters served on /metrics
type Metrics struct {
	requests   atomic.Uint64
	inFlight   atomic.Int64
	responses  [6]atomic.Uint64 // index = status / 100
	audits     atomic.Uint64
	running    atomic.Int64
	insights   atomic.Uint64
	failed     atomic.Uint64
	transport  atomic.Uint64
	auditNanos atomic.Int64
	startTime  time.Time
}

var globalMetrics = &Metrics{startTime: time.Now()}

// TrackAudit marks a passive audit as started. Call the returned func once
// with the outcome when the audit returns.
func TrackAudit() func(outcome string) {
	globalMetrics.audits.Add(1)
	globalMetrics.running.Add(1)
	start := time.Now()

	return func(outcome string) {
		d := time.Since(start)
		globalMetrics.running.Add(-1)
		globalMetrics.auditNanos.Add(int64(d))
		switch outcome {
		case OutcomeInsight:
			globalMetrics.insights.Add(1)
		case OutcomeFailed:
			globalMetrics.failed.Add(1)
		default:
			outcome = OutcomeTransportError
			globalMetrics.transport.Add(1)
		}
		observeAudit(outcome, d)
	}
}

// GetMetrics returns a snapshot of the counters
func GetMetrics() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	g := globalMetrics
	insights, failed := g.insights.Load(), g.failed.Load()
	done := insights + failed + g.transport.Load()
	var avgMS float64
	if done > 0 {
		avgMS = float64(g.auditNanos.Load()) / float64(done) / float64(time.Millisecond)
	}

	return map[string]any{
		"requests_total":     g.requests.Load(),
		"requests_in_flight": g.inFlight.Load(),
		"responses": map[string]uint64{
			"2xx": g.responses[2].Load(),
			"3xx": g.responses[3].Load(),
			"4xx": g.responses[4].Load(),
			"5xx": g.responses[5].Load(),
		},
		"audits": map[string]any{
			"total":            g.audits.Load(),
			"running":          g.running.Load(),
			"insights":         insights,
			"failed_analyses":  failed,
			"transport_errors": g.transport.Load(),
			"avg_duration_ms":  avgMS,
		},
		"findings_total": insights + failed,
		"uptime_seconds": time.Since(g.startTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes": m.Alloc,
			"sys_bytes":   m.Sys,
			"num_gc":      m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware counts requests and response classes
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalMetrics.requests.Add(1)
		globalMetrics.inFlight.Add(1)
		defer globalMetrics.inFlight.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if class := wrapped.statusCode / 100; class >= 2 && class <= 5 {
			globalMetrics.responses[class].Add(1)
		}
		observeResponse(r.Method, wrapped.statusCode)
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
