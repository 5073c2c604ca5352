package scancheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WreckedSky/burpgpt/internal/application"
	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
	"github.com/WreckedSky/burpgpt/internal/domain/findings"
)

// ErrNoRepository is returned by read use-cases when persistence is disabled
var ErrNoRepository = errors.New("findings repository not configured")

// Service implements the scan-check use-cases.
// Service holds no mutable state and is safe for concurrent use.
type Service struct {
	Analyzer analysis.Analyzer
	Synth    *findings.Synthesizer
	Repo     findings.Repository // optional
	Archive  analysis.Archive    // optional
	Logger   *slog.Logger
	Clock    application.Clock
}

//
// ==== USE CASES ====
//

// PassiveAudit analyzes one captured exchange. A transport failure is logged
// and yields no findings; any upstream answer, including an error or an empty
// body, yields exactly one finding.
func (s *Service) PassiveAudit(ctx context.Context, tenant string, ex *analysis.Exchange) []findings.Finding {
	req, payload, err := s.Analyzer.IdentifyVulnerabilities(ctx, ex)
	if err != nil {
		s.logger().Error("passive audit transport failure", "url", exchangeURL(ex), "error", err)
		return []findings.Finding{}
	}

	resp, err := analysis.Decode(payload)
	if err != nil {
		// malformed body behaves like an empty response
		s.logger().Warn("passive audit payload not decodable", "url", exchangeURL(ex), "error", err)
		resp = nil
	}

	rec := analysis.Record{Request: req, Response: resp}
	f := s.synth().Synthesize(rec.Request, rec.Response, ex)
	f = s.store(ctx, tenant, f, payload)
	return []findings.Finding{f}
}

// ActiveAudit never probes; it exists so hosts can treat this check uniformly.
func (s *Service) ActiveAudit(ctx context.Context, ex *analysis.Exchange, insertionPoint string) []findings.Finding {
	return []findings.Finding{}
}

// Consolidate decides whether a new finding duplicates an existing one
func (s *Service) Consolidate(newFinding, existing findings.Finding) findings.Action {
	return findings.Consolidate(newFinding, existing)
}

// List ambil satu halaman findings terbaru
func (s *Service) List(ctx context.Context, tenant string, page, pageSize int) ([]*findings.Finding, error) {
	if s.Repo == nil {
		return nil, ErrNoRepository
	}
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// ByLocation returns stored findings for one URL, newest first
func (s *Service) ByLocation(ctx context.Context, tenant, location string, limit int) ([]*findings.Finding, error) {
	if s.Repo == nil {
		return nil, ErrNoRepository
	}
	return s.Repo.ByLocation(ctx, tenant, location, limit)
}

// store assigns bookkeeping, archives the raw payload and saves the finding.
// Failures here are logged only: the caller still gets its finding.
func (s *Service) store(ctx context.Context, tenant string, f findings.Finding, payload any) findings.Finding {
	if s.Repo == nil && s.Archive == nil {
		return f
	}

	f.ID = findings.FindingID(uuid.New().String())
	f.TenantID = tenant
	f.CreatedAt = s.now()

	if s.Archive != nil && payload != nil {
		key := fmt.Sprintf("%s/%s.json", tenantOrDefault(tenant), f.ID)
		if _, err := s.Archive.PutJSON(ctx, key, payload); err != nil {
			s.logger().Warn("archive upstream payload failed", "key", key, "error", err)
		}
	}

	if s.Repo != nil {
		if err := s.Repo.Save(ctx, &f); err != nil {
			s.logger().Warn("save finding failed", "finding_id", f.ID, "error", err)
		}
	}
	return f
}

// helper
func (s *Service) synth() *findings.Synthesizer {
	if s.Synth != nil {
		return s.Synth
	}
	return findings.NewSynthesizer("", false, s.Logger)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return application.SystemClock{}.Now()
}

func exchangeURL(ex *analysis.Exchange) string {
	if ex == nil {
		return ""
	}
	return ex.URL
}

func tenantOrDefault(tenant string) string {
	if strings.TrimSpace(tenant) == "" {
		return "default"
	}
	return tenant
}
