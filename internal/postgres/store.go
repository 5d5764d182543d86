// Package postgres is the relational record store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/processing"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
)

const table = "outbreaks"

var columns = []string{
	"id", "source_url", "disease_name", "pathogen_type", "location_country", "location_region",
	"latitude", "longitude", "outbreak_date", "outbreak_status", "reported_cases", "reported_deaths",
	"case_fatality_rate", "severity_level", "severity_reasoning", "urgency_score", "transmission_risk",
	"spread_potential", "response_level", "agencies_involved", "key_insights", "stakeholders_affected",
	"tags", "key_numbers", "intelligence_summary", "confidence_score", "data_reliability",
	"source_organization", "news_title", "published_at", "extraction_method", "created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store persists records into Postgres.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

var _ storage.Backend = (*Store)(nil)

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db, log), nil
}

// New wraps an existing sql.DB.
func New(db *sql.DB, log *slog.Logger) *Store {
	log = logger.OrDiscard(log)
	return &Store{db: db, log: log.With("component", "postgres")}
}

// Migrate creates the table and indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *Store) FindBySourceURL(ctx context.Context, url string) (*models.OutbreakRecord, error) {
	query, args, err := findQuery(url).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source url: %w", err)
	}
	return rec, nil
}

// Insert relies on the unique source_url constraint; a conflict returns storage.ErrDuplicate.
func (s *Store) Insert(ctx context.Context, rec models.OutbreakRecord) (string, error) {
	if rec.SourceURL == "" {
		return "", errors.New("insert record: empty source url")
	}
	if rec.ID == "" {
		rec.ID = processing.BuildRecordID(rec.SourceURL)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query, args, err := insertQuery(rec).ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert query: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrDuplicate
	}
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// SelectRecent returns the newest records in chronological order.
func (s *Store) SelectRecent(ctx context.Context, limit int) ([]models.OutbreakRecord, error) {
	if limit <= 0 {
		return []models.OutbreakRecord{}, nil
	}

	items, err := s.list(ctx, psql.Select(columns...).From(table).OrderBy("created_at DESC").Limit(uint64(limit)))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *Store) Search(ctx context.Context, q storage.Query) (*storage.Page, error) {
	if q.Size <= 0 {
		q.Size = 20
	}
	if q.Size > 200 {
		q.Size = 200
	}
	if q.From < 0 {
		q.From = 0
	}

	where := searchFilter(q)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From(table).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	items, err := s.list(ctx, psql.Select(columns...).From(table).Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(q.Size)).
		Offset(uint64(q.From)))
	if err != nil {
		return nil, err
	}

	return &storage.Page{Total: total, Items: items}, nil
}

func (s *Store) Summary(ctx context.Context, topN int) (*storage.Summary, error) {
	if topN <= 0 {
		topN = 10
	}

	sum := &storage.Summary{}

	totalsSQL, totalsArgs, err := summaryTotalsQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build summary query: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, totalsSQL, totalsArgs...).
		Scan(&sum.Total, &sum.Active, &sum.CountriesAffected); err != nil {
		return nil, fmt.Errorf("summary totals: %w", err)
	}

	if sum.BySeverity, err = s.buckets(ctx, bucketQuery("severity_level", 0)); err != nil {
		return nil, err
	}
	if sum.ByDisease, err = s.buckets(ctx, bucketQuery("disease_name", topN)); err != nil {
		return nil, err
	}
	return sum, nil
}

// DeleteOlderThan removes records created before maxAge in batches of batchSize.
func (s *Store) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	cutoff := time.Now().Add(-maxAge).UTC()

	var total int64
	for {
		query, args, err := deleteBatchQuery(cutoff, batchSize).ToSql()
		if err != nil {
			return total, fmt.Errorf("build delete query: %w", err)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("delete records: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
	}
}

func (s *Store) list(ctx context.Context, b sq.SelectBuilder) ([]models.OutbreakRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	items := make([]models.OutbreakRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

func (s *Store) buckets(ctx context.Context, b sq.SelectBuilder) ([]storage.Bucket, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bucket query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Bucket, 0)
	for rows.Next() {
		var b storage.Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func findQuery(url string) sq.SelectBuilder {
	return psql.Select(columns...).From(table).Where(sq.Eq{"source_url": url}).Limit(1)
}

func insertQuery(rec models.OutbreakRecord) sq.InsertBuilder {
	var lat, lng *float64
	if rec.Coordinates != nil {
		lat, lng = &rec.Coordinates.Lat, &rec.Coordinates.Lng
	}
	var date any
	if rec.OutbreakDate != "" {
		date = rec.OutbreakDate
	}

	return psql.Insert(table).
		Columns(columns...).
		Values(
			rec.ID, rec.SourceURL, rec.DiseaseName, string(rec.PathogenType), rec.LocationCountry, rec.LocationRegion,
			lat, lng, date, string(rec.OutbreakStatus), rec.ReportedCases, rec.ReportedDeaths,
			rec.CaseFatalityRate, string(rec.SeverityLevel), rec.SeverityReasoning, rec.UrgencyScore, string(rec.TransmissionRisk),
			string(rec.SpreadPotential), string(rec.ResponseLevel), pq.Array(nonNil(rec.AgenciesInvolved)), pq.Array(nonNil(rec.KeyInsights)),
			pq.Array(nonNil(rec.StakeholdersAffected)), pq.Array(nonNil(rec.Tags)), rec.KeyNumbers, rec.IntelligenceSummary,
			rec.ConfidenceScore, string(rec.DataReliability), rec.SourceOrganization, rec.NewsTitle, rec.PublishedAt,
			rec.ExtractionMethod, rec.CreatedAt,
		).
		Suffix("ON CONFLICT (source_url) DO NOTHING RETURNING id")
}

func searchFilter(q storage.Query) sq.And {
	where := sq.And{}
	if q.Text != "" {
		pattern := "%" + q.Text + "%"
		where = append(where, sq.Or{
			sq.ILike{"news_title": pattern},
			sq.ILike{"intelligence_summary": pattern},
		})
	}
	if q.Disease != "" {
		where = append(where, sq.Eq{"disease_name": q.Disease})
	}
	if q.Country != "" {
		where = append(where, sq.Eq{"location_country": q.Country})
	}
	if q.Severity != "" {
		where = append(where, sq.Eq{"severity_level": q.Severity})
	}
	if q.Status != "" {
		where = append(where, sq.Eq{"outbreak_status": q.Status})
	}
	if q.Start != nil {
		where = append(where, sq.GtOrEq{"created_at": q.Start.UTC()})
	}
	if q.End != nil {
		where = append(where, sq.LtOrEq{"created_at": q.End.UTC()})
	}
	return where
}

func summaryTotalsQuery() sq.SelectBuilder {
	return psql.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE outbreak_status IN ('active','emerging','ongoing'))",
		"COUNT(DISTINCT NULLIF(location_country, ''))",
	).From(table)
}

func bucketQuery(column string, limit int) sq.SelectBuilder {
	b := psql.Select(column, "COUNT(*) AS n").
		From(table).
		Where(sq.NotEq{column: ""}).
		GroupBy(column).
		OrderBy("n DESC", column)
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return b
}

func deleteBatchQuery(cutoff time.Time, batchSize int) sq.DeleteBuilder {
	sub := psql.Select("id").From(table).Where(sq.LtOrEq{"created_at": cutoff}).Limit(uint64(batchSize))
	return psql.Delete(table).Where(sq.Expr("id IN (?)", sub))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.OutbreakRecord, error) {
	var (
		rec          models.OutbreakRecord
		lat, lng     sql.NullFloat64
		cfr, urgency sql.NullFloat64
		date         sql.NullTime
		cases        sql.NullInt64
		deaths       sql.NullInt64
		pathogen     string
		status       string
		severity     string
		transmission string
		spread       string
		response     string
		reliability  string
		agencies     pq.StringArray
		insights     pq.StringArray
		stakeholders pq.StringArray
		tags         pq.StringArray
	)

	err := row.Scan(
		&rec.ID, &rec.SourceURL, &rec.DiseaseName, &pathogen, &rec.LocationCountry, &rec.LocationRegion,
		&lat, &lng, &date, &status, &cases, &deaths,
		&cfr, &severity, &rec.SeverityReasoning, &urgency, &transmission,
		&spread, &response, &agencies, &insights,
		&stakeholders, &tags, &rec.KeyNumbers, &rec.IntelligenceSummary,
		&rec.ConfidenceScore, &reliability, &rec.SourceOrganization, &rec.NewsTitle, &rec.PublishedAt,
		&rec.ExtractionMethod, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.PathogenType = models.ParsePathogenType(pathogen)
	rec.OutbreakStatus = models.ParseOutbreakStatus(status)
	rec.SeverityLevel = models.ParseSeverityLevel(severity)
	rec.TransmissionRisk = models.ParseTransmissionRisk(transmission)
	rec.SpreadPotential = models.ParseSpreadPotential(spread)
	rec.ResponseLevel = models.ParseResponseLevel(response)
	rec.DataReliability = models.ParseDataReliability(reliability)

	if lat.Valid && lng.Valid {
		rec.Coordinates = &models.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if date.Valid {
		rec.OutbreakDate = date.Time.Format(models.DateLayout)
	}
	rec.ReportedCases = nullInt(cases)
	rec.ReportedDeaths = nullInt(deaths)
	rec.CaseFatalityRate = nullFloat(cfr)
	rec.UrgencyScore = nullFloat(urgency)

	rec.AgenciesInvolved = nonNil(agencies)
	rec.KeyInsights = nonNil(insights)
	rec.StakeholdersAffected = nonNil(stakeholders)
	rec.Tags = nonNil(tags)
	rec.CreatedAt = rec.CreatedAt.UTC()

	return &rec, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
