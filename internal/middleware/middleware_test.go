package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
)

func TestValidateExchange(t *testing.T) {
	ok := &analysis.Exchange{Method: "POST", URL: "http://127.0.0.1:8080/login", StatusCode: 200}
	assert.NoError(t, ValidateExchange(ok))

	bad := []*analysis.Exchange{
		nil,
		{URL: ""},
		{URL: "ftp://files.example/"},
		{URL: "https://"},
		{URL: "https://a.example/", Method: "FETCH"},
		{URL: "https://a.example/", StatusCode: 42},
		{URL: "https://a.example/", ResponseBody: strings.Repeat("x", maxExchangeBody+1)},
	}
	for _, ex := range bad {
		assert.ErrorIs(t, ValidateExchange(ex), ErrInvalidInput)
	}
}

func TestValidateTenantAndPaging(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme_1"))
	assert.ErrorIs(t, ValidateTenantID(""), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTenantID("a/b"), ErrInvalidInput)

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 1, ValidatePage(-3))
	assert.Equal(t, "ab\tc", SanitizeString(" a\x00b\tc\x07 "))
}

func tenantRouter(keys map[string]string) http.Handler {
	r := chi.NewRouter()
	r.Use(APIKeyAuth(keys))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	r.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(RequireValidTenant)
		rt.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("pong")) })
	})
	return r
}

func TestAuthAndTenant(t *testing.T) {
	h := tenantRouter(map[string]string{"acme": "k1", "globex": "k2"})

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
	}{
		{"probe skips auth", "/health", "", http.StatusOK},
		{"missing header", "/v1/acme/ping", "", http.StatusUnauthorized},
		{"wrong key", "/v1/acme/ping", "Bearer nope", http.StatusUnauthorized},
		{"matching tenant", "/v1/acme/ping", "Bearer k1", http.StatusOK},
		{"bare key", "/v1/acme/ping", "k1", http.StatusOK},
		{"other tenant", "/v1/acme/ping", "Bearer k2", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAuthDisabledStillValidatesTenant(t *testing.T) {
	h := tenantRouter(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/"+strings.Repeat("a", 65)+"/ping", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, 0)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/acme/audit/passive", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/acme/findings", nil))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "bytes=5")
	assert.Contains(t, out, "path=/v1/acme/findings")
}

func TestTrackAudit(t *testing.T) {
	audits := func() map[string]any { return GetMetrics()["audits"].(map[string]any) }
	before := audits()
	beforeFindings := GetMetrics()["findings_total"].(uint64)

	TrackAudit()(OutcomeInsight)
	TrackAudit()(OutcomeFailed)
	TrackAudit()(OutcomeTransportError)

	after := audits()
	assert.Equal(t, before["total"].(uint64)+3, after["total"].(uint64))
	assert.Equal(t, before["insights"].(uint64)+1, after["insights"].(uint64))
	assert.Equal(t, before["failed_analyses"].(uint64)+1, after["failed_analyses"].(uint64))
	assert.Equal(t, before["transport_errors"].(uint64)+1, after["transport_errors"].(uint64))
	assert.Equal(t, before["running"], after["running"])
	assert.Equal(t, beforeFindings+2, GetMetrics()["findings_total"].(uint64))
}

func TestPrometheusHandler(t *testing.T) {
	TrackAudit()(OutcomeInsight)
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	rec := httptest.NewRecorder()
	PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, `burpgpt_passive_audits_total{outcome="insight"}`)
	assert.Contains(t, body, "burpgpt_passive_audit_duration_seconds_bucket")
	assert.Contains(t, body, `burpgpt_http_responses_total{class="4xx",method="GET"}`)
}

func TestHealthHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	down := CheckFunc(func(context.Context) error { return errors.New("bucket gpt not found") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"database": ok})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"database": ok, "storage": down})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var got HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "unhealthy", got.Status)
	assert.Equal(t, "healthy", got.Checks["database"].Status)
	assert.Equal(t, "bucket gpt not found", got.Checks["storage"].Message)
}

func TestTokenBucketRetryAfter(t *testing.T) {
	tb := NewTokenBucket(1, 2)
	ok, _ := tb.Allow()
	assert.True(t, ok)

	ok, wait := tb.Allow()
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 500*time.Millisecond)
}

func TestRateLimitKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/acme/findings", nil)
	r.RemoteAddr = "203.0.113.7:50123"
	assert.Equal(t, "ip:203.0.113.7", rateLimitKey(r))

	r = r.WithContext(context.WithValue(r.Context(), TenantKey, "acme"))
	assert.Equal(t, "tenant:acme", rateLimitKey(r))
}
