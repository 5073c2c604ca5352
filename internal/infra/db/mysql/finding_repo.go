package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/WreckedSky/burpgpt/internal/domain/findings"
)

const findingColumns = `id, tenant_id, title, detail, remediation, location, severity, confidence,
       background, remediation_background, exchange_json, created_at`

type FindingRepository struct {
	db *sql.DB
}

func NewFindingRepository(db *sql.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

// Save insert/update Finding record
func (r *FindingRepository) Save(ctx context.Context, f *domain.Finding) error {
	const q = `
INSERT INTO gpt_findings
(id, tenant_id, title, detail, remediation, location, severity, confidence,
 background, remediation_background, exchange_json, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 title=VALUES(title), detail=VALUES(detail), remediation=VALUES(remediation),
 severity=VALUES(severity), confidence=VALUES(confidence),
 background=VALUES(background), remediation_background=VALUES(remediation_background);
`
	if f.ID == "" {
		return fmt.Errorf("finding id is required")
	}
	exchange, err := encodeExchange(f.Exchange)
	if err != nil {
		return fmt.Errorf("encode exchange: %w", err)
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, q,
		f.ID, stringOrDash(f.TenantID), f.Title, f.Detail, nullString(f.Remediation),
		stringOrDash(f.Location), string(f.Severity), string(f.Confidence),
		f.Background, nullString(f.RemediationBackground), exchange, created,
	)
	return err
}

// Paginate returns a page of findings ordered by created_at desc
func (r *FindingRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Finding, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `SELECT ` + findingColumns + `
FROM gpt_findings
WHERE tenant_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, stringOrDash(tenant), pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFindings(rows)
}

// ByLocation findings untuk satu URL, terbaru dulu
func (r *FindingRepository) ByLocation(ctx context.Context, tenant, location string, limit int) ([]*domain.Finding, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + findingColumns + `
FROM gpt_findings
WHERE tenant_id=? AND location=?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, stringOrDash(tenant), location, limit)
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
			exchange           string
			created            time.Time
		)
		if err := rows.Scan(
			&f.ID, &f.TenantID, &f.Title, &f.Detail, &remediation, &f.Location, &f.Severity, &f.Confidence,
			&f.Background, &remBg, &exchange, &created,
		); err != nil {
			return nil, err
		}
		ex, err := decodeExchange(exchange)
		if err != nil {
			return nil, fmt.Errorf("decode exchange for finding %s: %w", f.ID, err)
		}
		f.Remediation = stringPtr(remediation)
		f.RemediationBackground = stringPtr(remBg)
		f.Exchange = ex
		f.CreatedAt = created
		out = append(out, &f)
	}
	return out, rows.Err()
}
