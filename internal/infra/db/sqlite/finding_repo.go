package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
	domain "github.com/WreckedSky/burpgpt/internal/domain/findings"
)

// fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const findingColumns = `id, tenant_id, title, detail, remediation, location, severity, confidence,
       background, remediation_background, exchange_json, created_at`

// FindingRepository stores findings in a local SQLite file
type FindingRepository struct {
	db *sql.DB
}

func NewFindingRepository(db *sql.DB) *FindingRepository { return &FindingRepository{db: db} }

func (r *FindingRepository) Save(ctx context.Context, f *domain.Finding) error {
	const q = `
INSERT INTO gpt_findings(` + findingColumns + `)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
    title                  = excluded.title,
    detail                 = excluded.detail,
    remediation            = excluded.remediation,
    severity               = excluded.severity,
    confidence             = excluded.confidence,
    background             = excluded.background,
    remediation_background = excluded.remediation_background`
	if f.ID == "" {
		return fmt.Errorf("finding id is required")
	}
	exchange := "{}"
	if f.Exchange != nil {
		b, err := json.Marshal(f.Exchange)
		if err != nil {
			return fmt.Errorf("encode exchange: %w", err)
		}
		exchange = string(b)
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		f.ID, orDash(f.TenantID), f.Title, f.Detail, f.Remediation,
		orDash(f.Location), string(f.Severity), string(f.Confidence),
		f.Background, f.RemediationBackground, exchange, created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert finding %s: %w", f.ID, err)
	}
	return nil
}

func (r *FindingRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Finding, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	q := `SELECT ` + findingColumns + ` FROM gpt_findings
WHERE tenant_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, orDash(tenant), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFindings(rows)
}

func (r *FindingRepository) ByLocation(ctx context.Context, tenant, location string, limit int) ([]*domain.Finding, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + findingColumns + ` FROM gpt_findings
WHERE tenant_id=? AND location=? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, orDash(tenant), location, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFindings(rows)
}

func scanFindings(rows *sql.Rows) ([]*domain.Finding, error) {
	var out []*domain.Finding
	for rows.Next() {
		var (
			f                  domain.Finding
			remediation, remBg sql.NullString
			exchange, created  string
		)
		if err := rows.Scan(
			&f.ID, &f.TenantID, &f.Title, &f.Detail, &remediation, &f.Location, &f.Severity, &f.Confidence,
			&f.Background, &remBg, &exchange, &created,
		); err != nil {
			return nil, err
		}
		if remediation.Valid {
			f.Remediation = &remediation.String
		}
		if remBg.Valid {
			f.RemediationBackground = &remBg.String
		}
		if exchange != "" && exchange != "{}" {
			var ex analysis.Exchange
			if err := json.Unmarshal([]byte(exchange), &ex); err != nil {
				return nil, fmt.Errorf("decode exchange for finding %s: %w", f.ID, err)
			}
			f.Exchange = &ex
		}
		ts, err := time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for finding %s: %w", f.ID, err)
		}
		f.CreatedAt = ts
		out = append(out, &f)
	}
	return out, rows.Err()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
