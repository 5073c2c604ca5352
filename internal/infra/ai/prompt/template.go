package prompt

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
)

// DefaultTemplate is used when no custom template is configured.
const DefaultTemplate = `Please analyze the following HTTP request and response for potential security vulnerabilities, specifically focusing on OWASP top 10 vulnerabilities such as SQL injection, XSS, CSRF, and other common web application security threats.

Format your response as a bullet list with each point listing a vulnerability name and a brief description, in the format:
- Vulnerability Name: Brief description of vulnerability (excluding this format in response)

Exclude irrelevant information.

=== Request ===
{REQUEST}

=== Response ===
{RESPONSE}
`

// DefaultMaxPromptSize in characters
const DefaultMaxPromptSize = 2048

// Template renders an exchange into the prompt sent upstream. Supported placeholders:
// {REQUEST} {RESPONSE} {URL} {METHOD} {REQUEST_HEADERS} {REQUEST_BODY}
// {RESPONSE_HEADERS} {RESPONSE_BODY} {IS_TRUNCATED_PROMPT}
type Template struct {
	Text          string
	MaxPromptSize int
}

// New returns a Template, falling back to the defaults for zero values
func New(text string, maxPromptSize int) *Template {
	if strings.TrimSpace(text) == "" {
		text = DefaultTemplate
	}
	if maxPromptSize <= 0 {
		maxPromptSize = DefaultMaxPromptSize
	}
	return &Template{Text: text, MaxPromptSize: maxPromptSize}
}

// Render fills the placeholders and truncates the result to MaxPromptSize runes.
// It returns the prompt and whether truncation happened.
func (t *Template) Render(ex *analysis.Exchange) (string, bool) {
	if ex == nil {
		ex = &analysis.Exchange{}
	}
	full := t.fill(ex, false)
	if t.MaxPromptSize <= 0 || len([]rune(full)) <= t.MaxPromptSize {
		return full, false
	}
	truncated := []rune(t.fill(ex, true))
	if len(truncated) > t.MaxPromptSize {
		truncated = truncated[:t.MaxPromptSize]
	}
	return string(truncated), true
}

func (t *Template) fill(ex *analysis.Exchange, truncated bool) string {
	reqHeaders := formatHeaders(ex.RequestHeaders)
	respHeaders := formatHeaders(ex.ResponseHeaders)

	r := strings.NewReplacer(
		"{REQUEST}", formatRequest(ex, reqHeaders),
		"{RESPONSE}", formatResponse(ex, respHeaders),
		"{URL}", ex.URL,
		"{METHOD}", ex.Method,
		"{REQUEST_HEADERS}", reqHeaders,
		"{REQUEST_BODY}", ex.RequestBody,
		"{RESPONSE_HEADERS}", respHeaders,
		"{RESPONSE_BODY}", ex.ResponseBody,
		"{IS_TRUNCATED_PROMPT}", strconv.FormatBool(truncated),
	)
	return r.Replace(t.Text)
}

func formatRequest(ex *analysis.Exchange, headers string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", ex.Method, ex.URL)
	b.WriteString(headers)
	if ex.RequestBody != "" {
		b.WriteString("\n")
		b.WriteString(ex.RequestBody)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatResponse(ex *analysis.Exchange, headers string) string {
	var b strings.Builder
	if ex.StatusCode > 0 {
		fmt.Fprintf(&b, "%d %s\n", ex.StatusCode, http.StatusText(ex.StatusCode))
	}
	b.WriteString(headers)
	if ex.ResponseBody != "" {
		b.WriteString("\n")
		b.WriteString(ex.ResponseBody)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHeaders(h map[string][]string) string {
	if len(h) == 0 {
		return ""
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range h[k] {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	return b.String()
}
