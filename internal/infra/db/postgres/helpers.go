package postgres

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// exchange_json column holds the originating exchange or "{}" when absent
func encodeExchange(ex *analysis.Exchange) (string, error) {
	if ex == nil {
		return "{}", nil
	}
	b, err := json.Marshal(ex)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeExchange(s string) (*analysis.Exchange, error) {
	if strings.TrimSpace(s) == "" || s == "{}" {
		return nil, nil
	}
	var ex analysis.Exchange
	if err := json.Unmarshal([]byte(s), &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}
