package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
)

// Input validation and sanitization utilities

// ErrInvalidInput marks client errors so handlers can answer 400
var ErrInvalidInput = errors.New("invalid input")

var tenantPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// maxExchangeBody caps each captured body accepted from the host
const maxExchangeBody = 1 << 20

// ValidateExchange checks the captured exchange a host submits for analysis.
// Loopback and private targets are fine here: nothing is fetched from the URL.
func ValidateExchange(ex *analysis.Exchange) error {
	if ex == nil {
		return fmt.Errorf("%w: exchange cannot be empty", ErrInvalidInput)
	}
	if err := ValidateURL(ex.URL); err != nil {
		return err
	}
	if ex.Method != "" && !validMethod(ex.Method) {
		return fmt.Errorf("%w: invalid HTTP method: %q", ErrInvalidInput, ex.Method)
	}
	if ex.StatusCode != 0 && (ex.StatusCode < 100 || ex.StatusCode > 599) {
		return fmt.Errorf("%w: invalid status code: %d", ErrInvalidInput, ex.StatusCode)
	}
	if len(ex.RequestBody) > maxExchangeBody || len(ex.ResponseBody) > maxExchangeBody {
		return fmt.Errorf("%w: exchange body exceeds %d bytes", ErrInvalidInput, maxExchangeBody)
	}
	return nil
}

// ValidateURL validates the request URL of a captured exchange
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: URL cannot be empty", ErrInvalidInput)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL format: %v", ErrInvalidInput, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: invalid URL scheme: %s (allowed: http, https)", ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL has no host", ErrInvalidInput)
	}
	return nil
}

func validMethod(m string) bool {
	switch strings.ToUpper(m) {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("%w: tenant ID cannot be empty", ErrInvalidInput)
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("%w: invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)", ErrInvalidInput)
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
