package postgres

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WreckedSky/burpgpt/internal/domain/analysis"
	domain "github.com/WreckedSky/burpgpt/internal/domain/findings"
)

var findingRowColumns = []string{"id", "tenant_id", "title", "detail", "remediation", "location", "severity",
	"confidence", "background", "remediation_background", "exchange_json", "created_at"}

func TestFindingRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := &domain.Finding{
		ID:         "f-1",
		TenantID:   "acme",
		Title:      domain.TitleInsights,
		Detail:     "&lt;b&gt;",
		Location:   "https://shop.example/",
		Severity:   domain.SeverityInformation,
		Confidence: domain.ConfidenceTentative,
		Background: "bg",
		Exchange:   &analysis.Exchange{URL: "https://shop.example/", StatusCode: 200},
		CreatedAt:  created,
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("f-1", "acme", f.Title, f.Detail, nil, f.Location, "information", "tentative", "bg", nil,
			`{"method":"","url":"https://shop.example/","status_code":200}`, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewFindingRepository(db).Save(t.Context(), f))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindingRepository_Paginate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id=$1")).
		WithArgs("acme", 10, 0).
		WillReturnRows(sqlmock.NewRows(findingRowColumns).
			AddRow("f-1", "acme", domain.TitleFailed, "d", "rem", "https://a.example/", "information", "certain", "bg", "rb", "{}", created))

	got, err := NewFindingRepository(db).Paginate(t.Context(), "acme", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rem", *got[0].Remediation)
	assert.Equal(t, "rb", *got[0].RemediationBackground)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindingRepository_ByLocationBadExchange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("location=$2")).
		WithArgs("-", "https://a.example/", 20).
		WillReturnRows(sqlmock.NewRows(findingRowColumns).
			AddRow("f-1", "-", domain.TitleFailed, "d", nil, "https://a.example/", "information", "certain", "bg", nil, "{broken", time.Now()))

	_, err = NewFindingRepository(db).ByLocation(t.Context(), "", "https://a.example/", 0)
	assert.ErrorContains(t, err, "decode exchange for finding f-1")
}
