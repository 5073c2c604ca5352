package findings

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
)

const (
	TitleInsights = "GPT-generated insights"
	TitleFailed   = "GPT Analysis Failed"

	DefaultProvider = "OpenAI"
)

// Synthesizer builds exactly one finding from an analysis outcome.
// Provider names the upstream service in the fixed failure wording.
type Synthesizer struct {
	Debug    bool
	Provider string
	Logger   *slog.Logger
}

// NewSynthesizer returns a Synthesizer for the given provider name ("" means OpenAI)
func NewSynthesizer(provider string, debug bool, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{Debug: debug, Provider: provider, Logger: logger}
}

// Synthesize turns the record into a finding located at the exchange URL.
func (s *Synthesizer) Synthesize(req analysis.Request, resp *analysis.Response, ex *analysis.Exchange) Finding {
	var location string
	if ex != nil {
		location = ex.URL
	}

	if answer, ok := analysis.ExtractAnswer(resp); ok {
		return Finding{
			Title:      TitleInsights,
			Detail:     escapeMarkup(answer),
			Location:   location,
			Severity:   SeverityInformation,
			Confidence: ConfidenceTentative,
			Background: s.insightBackground(req),
			Exchange:   ex,
		}
	}

	detail := s.failureDetail(resp)
	remediation := "The GPT analysis could not be completed. Please check your API key and settings."
	remediationBackground := fmt.Sprintf(
		"Check that your %s API key is valid and that you haven't exceeded your rate limits.", s.provider())

	if s.Debug && s.Logger != nil {
		s.Logger.Info("[!] GPT analysis failed: "+detail, "location", location)
	}

	return Finding{
		Title:                 TitleFailed,
		Detail:                detail,
		Remediation:           &remediation,
		Location:              location,
		Severity:              SeverityInformation,
		Confidence:            ConfidenceCertain,
		Background:            "The analysis failed to generate insights for this request/response pair.",
		RemediationBackground: &remediationBackground,
		Exchange:              ex,
	}
}

func (s *Synthesizer) insightBackground(req analysis.Request) string {
	return fmt.Sprintf(
		"The %s API generated a response using the following parameters:"+"<br>"+
			"<ul>"+
			"<li>Model: %s</li>"+
			"<li>Maximum prompt size: %d</li>"+
			"<li>Prompt:<br><br>%s</li>"+
			"</ul>",
		s.provider(), html.EscapeString(req.Model), req.MaxPromptSize, escapeMarkup(req.Prompt))
}

func (s *Synthesizer) failureDetail(resp *analysis.Response) string {
	if resp.HasError() {
		// upstream error text is untrusted markup as well
		return fmt.Sprintf("Error from %s API: %s", s.provider(), escapeMarkup(resp.ErrorMessage()))
	}
	return fmt.Sprintf("No response received from %s API or the response was empty.", s.provider())
}

func (s *Synthesizer) provider() string {
	if s == nil || strings.TrimSpace(s.Provider) == "" {
		return DefaultProvider
	}
	return s.Provider
}

// escapeMarkup HTML-escapes untrusted text and turns newlines into line breaks
func escapeMarkup(s string) string {
	return strings.ReplaceAll(html.EscapeString(strings.TrimSpace(s)), "\n", "<br />")
}
