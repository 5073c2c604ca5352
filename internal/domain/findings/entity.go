package findings

import (
	"maps"
	"slices"
	"time"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
)

// FindingID identifier type
type FindingID string

// Severity enum
type Severity string

const (
	SeverityHigh        Severity = "high"
	SeverityMedium      Severity = "medium"
	SeverityLow         Severity = "low"
	SeverityInformation Severity = "information"
)

// Confidence enum
type Confidence string

const (
	ConfidenceCertain   Confidence = "certain"
	ConfidenceFirm      Confidence = "firm"
	ConfidenceTentative Confidence = "tentative"
)

// Finding is one synthesized observation about a captured exchange.
// Treat it as a value: nothing mutates a finding after Synthesize returns it,
// except the ID/CreatedAt bookkeeping set right before persisting.
type Finding struct {
	ID                    FindingID          `json:"id,omitempty"`
	TenantID              string             `json:"tenant_id,omitempty"`
	Title                 string             `json:"title"`
	Detail                string             `json:"detail"`
	Remediation           *string            `json:"remediation"`
	Location              string             `json:"location"`
	Severity              Severity           `json:"severity"`
	Confidence            Confidence         `json:"confidence"`
	Background            string             `json:"background"`
	RemediationBackground *string            `json:"remediation_background"`
	Exchange              *analysis.Exchange `json:"exchange,omitempty"`
	CreatedAt             time.Time          `json:"created_at,omitempty"`
}

// Equal compares every content field. Storage bookkeeping (ID, tenant,
// CreatedAt) is ignored so a stored finding still matches a freshly built one.
func (f Finding) Equal(o Finding) bool {
	return f.Title == o.Title &&
		f.Detail == o.Detail &&
		equalOpt(f.Remediation, o.Remediation) &&
		f.Location == o.Location &&
		f.Severity == o.Severity &&
		f.Confidence == o.Confidence &&
		f.Background == o.Background &&
		equalOpt(f.RemediationBackground, o.RemediationBackground) &&
		equalExchange(f.Exchange, o.Exchange)
}

func equalOpt(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalExchange(a, b *analysis.Exchange) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Method == b.Method &&
		a.URL == b.URL &&
		a.StatusCode == b.StatusCode &&
		a.RequestBody == b.RequestBody &&
		a.ResponseBody == b.ResponseBody &&
		maps.EqualFunc(a.RequestHeaders, b.RequestHeaders, slices.Equal[[]string]) &&
		maps.EqualFunc(a.ResponseHeaders, b.ResponseHeaders, slices.Equal[[]string])
}
