package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appscan "github.com/WreckedSky/burpgpt/internal/application/scancheck"
	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
	"github.com/WreckedSky/burpgpt/internal/domain/findings"
	"github.com/WreckedSky/burpgpt/internal/middleware"
)

const maxBodyBytes = 4 << 20

// Options configures the ambient middleware around the scan-check routes
type Options struct {
	APIKeys        map[string]string
	CORSOrigins    []string
	Limiter        *middleware.RateLimiter
	Logger         *slog.Logger
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	svc    *appscan.Service
	logger *slog.Logger
}

func NewRouter(svc *appscan.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{svc: svc, logger: logger}
	mux := chi.NewRouter()

	mux.Use(middleware.Logging(logger))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Handle("/metrics/prometheus", middleware.PrometheusHandler())

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidTenant)
		rt.Post("/audit/passive", r.wrap(r.handlePassiveAudit))
		rt.Post("/audit/active", r.wrap(r.handleActiveAudit))
		rt.Post("/findings/consolidate", r.wrap(r.handleConsolidate))
		rt.Get("/findings", r.wrap(r.handleListFindings))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, middleware.ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, appscan.ErrNoRepository):
				http.Error(w, "findings storage is disabled", http.StatusNotImplemented)
			default:
				r.logger.Error("request failed", "path", req.URL.Path, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}
	}
}

// POST /v1/{tenant}/audit/passive
// Body: captured exchange. Response: zero or one finding.
func (r *Router) handlePassiveAudit(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var ex analysis.Exchange
	if err := decodeBody(w, req, &ex); err != nil {
		return err
	}
	if err := middleware.ValidateExchange(&ex); err != nil {
		return err
	}

	done := middleware.TrackAudit()
	out := r.svc.PassiveAudit(req.Context(), tenant, &ex)
	done(auditOutcome(out))

	return writeJSON(w, out)
}

// POST /v1/{tenant}/audit/active
// Body: {"exchange": {...}, "insertion_point": "<name>"}; always answers [].
func (r *Router) handleActiveAudit(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Exchange       analysis.Exchange `json:"exchange"`
		InsertionPoint string            `json:"insertion_point"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	return writeJSON(w, r.svc.ActiveAudit(req.Context(), &body.Exchange, middleware.SanitizeString(body.InsertionPoint)))
}

// POST /v1/{tenant}/findings/consolidate
// Body: {"new": {...}, "existing": {...}}
func (r *Router) handleConsolidate(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		New      *findings.Finding `json:"new"`
		Existing *findings.Finding `json:"existing"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	if body.New == nil || body.Existing == nil {
		return fmt.Errorf("%w: both new and existing findings are required", middleware.ErrInvalidInput)
	}

	action := r.svc.Consolidate(*body.New, *body.Existing)
	return writeJSON(w, map[string]any{"action": action})
}

// GET /v1/{tenant}/findings?page=&page_size=
// GET /v1/{tenant}/findings?location=<url>&limit=
func (r *Router) handleListFindings(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	q := req.URL.Query()

	if loc := q.Get("location"); loc != "" {
		limit, _ := strconv.Atoi(q.Get("limit"))
		list, err := r.svc.ByLocation(req.Context(), tenant, loc, middleware.ValidateLimit(limit))
		if err != nil {
			return err
		}
		return writeJSON(w, nonNil(list))
	}

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	list, err := r.svc.List(req.Context(), tenant, middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, nonNil(list))
}

func auditOutcome(out []findings.Finding) string {
	switch {
	case len(out) == 0:
		return middleware.OutcomeTransportError
	case out[0].Title == findings.TitleInsights:
		return middleware.OutcomeInsight
	default:
		return middleware.OutcomeFailed
	}
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", middleware.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

func nonNil(list []*findings.Finding) []*findings.Finding {
	if list == nil {
		return []*findings.Finding{}
	}
	return list
}
