package postgres

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
)

func TestInsertQueryIsConditional(t *testing.T) {
	cases := 120
	rec := models.OutbreakRecord{
		ID:            "abc",
		SourceURL:     "https://example.org/a",
		DiseaseName:   "Cholera",
		ReportedCases: &cases,
		OutbreakDate:  "2025-03-14",
		Coordinates:   &models.Coordinates{Lat: 15.5, Lng: 32.5},
		CreatedAt:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	query, args, err := insertQuery(rec).ToSql()
	require.NoError(t, err)

	require.Contains(t, query, "INSERT INTO outbreaks (id,source_url,disease_name,")
	require.Contains(t, query, "$32")
	require.NotContains(t, query, "$33")
	require.Contains(t, query, "ON CONFLICT (source_url) DO NOTHING RETURNING id")
	require.Len(t, args, len(columns))
	require.Equal(t, "abc", args[0])
	require.Equal(t, "https://example.org/a", args[1])
	require.Equal(t, "2025-03-14", args[8])
}

func TestInsertQueryNullDate(t *testing.T) {
	_, args, err := insertQuery(models.OutbreakRecord{SourceURL: "https://example.org/b"}).ToSql()
	require.NoError(t, err)
	require.Nil(t, args[8])
}

func TestFindQuery(t *testing.T) {
	query, args, err := findQuery("https://example.org/a").ToSql()
	require.NoError(t, err)
	require.Contains(t, query, "FROM outbreaks WHERE source_url = $1 LIMIT 1")
	require.Equal(t, []any{"https://example.org/a"}, args)
}

func TestSearchFilter(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q := storage.Query{Text: "cholera", Country: "Sudan", Severity: "high", Start: &start}

	query, args, err := psql.Select("COUNT(*)").From(table).Where(searchFilter(q)).ToSql()
	require.NoError(t, err)

	require.Equal(t,
		"SELECT COUNT(*) FROM outbreaks WHERE ((news_title ILIKE $1 OR intelligence_summary ILIKE $2) AND location_country = $3 AND severity_level = $4 AND created_at >= $5)",
		query)
	require.Equal(t, []any{"%cholera%", "%cholera%", "Sudan", "high", start}, args)
}

func TestBucketQuery(t *testing.T) {
	query, _, err := bucketQuery("disease_name", 5).ToSql()
	require.NoError(t, err)
	require.Equal(t,
		"SELECT disease_name, COUNT(*) AS n FROM outbreaks WHERE disease_name <> $1 GROUP BY disease_name ORDER BY n DESC, disease_name LIMIT 5",
		query)

	query, _, err = bucketQuery("severity_level", 0).ToSql()
	require.NoError(t, err)
	require.NotContains(t, query, "LIMIT")
}

func TestDeleteBatchQuery(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	query, args, err := deleteBatchQuery(cutoff, 500).ToSql()
	require.NoError(t, err)
	require.Equal(t,
		"DELETE FROM outbreaks WHERE id IN (SELECT id FROM outbreaks WHERE created_at <= $1 LIMIT 500)",
		query)
	require.Equal(t, []any{cutoff}, args)
}

type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func TestScanRecord(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	row := fakeRow{values: []any{
		"id-1", "https://example.org/a", "Cholera", "bacterial", "Sudan", "",
		sql.NullFloat64{Float64: 15.5, Valid: true}, sql.NullFloat64{Float64: 32.5, Valid: true},
		sql.NullTime{Time: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Valid: true},
		"active", sql.NullInt64{Int64: 500, Valid: true}, sql.NullInt64{},
		sql.NullFloat64{}, "bogus", "", sql.NullFloat64{Float64: 0.7, Valid: true}, "high",
		"moderate", "national", pq.StringArray{"WHO"}, pq.StringArray(nil),
		pq.StringArray(nil), pq.StringArray{"cholera"}, `{"cases":500}`, "summary",
		0.8, "high", "Reuters", "Cholera in Sudan", "2025-03-14T09:00:00Z",
		models.MethodAI, created,
	}}

	rec, err := scanRecord(row)
	require.NoError(t, err)

	require.Equal(t, models.PathogenBacterial, rec.PathogenType)
	require.Equal(t, models.SeverityUnknown, rec.SeverityLevel)
	require.Equal(t, &models.Coordinates{Lat: 15.5, Lng: 32.5}, rec.Coordinates)
	require.Equal(t, "2025-03-10", rec.OutbreakDate)
	require.NotNil(t, rec.ReportedCases)
	require.Equal(t, 500, *rec.ReportedCases)
	require.Nil(t, rec.ReportedDeaths)
	require.Nil(t, rec.CaseFatalityRate)
	require.InDelta(t, 0.7, *rec.UrgencyScore, 1e-9)
	require.Equal(t, []string{"WHO"}, rec.AgenciesInvolved)
	require.NotNil(t, rec.KeyInsights)
	require.Empty(t, rec.KeyInsights)
	require.Equal(t, time.UTC, rec.CreatedAt.Location())
}
