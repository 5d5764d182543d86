// Package normalizer reconciles extractor candidates into one storage-ready record.
package normalizer

import (
	"log/slog"
	"math"
	"time"

	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/processing"
)

// Inputs are the per-article extractor results. Either may be absent.
type Inputs struct {
	Heuristic *models.Candidate
	AI        models.Extraction
}

// Normalizer applies the reconciliation policy and type coercions.
type Normalizer struct {
	log *slog.Logger
	now func() time.Time
}

// New constructs a Normalizer.
func New(log *slog.Logger) *Normalizer {
	return &Normalizer{
		log: logger.OrDiscard(log).With("component", "normalizer"),
		now: time.Now,
	}
}

// Normalize returns a canonical record or an error wrapping ErrRejected.
//
// A relevant AI candidate is authoritative and the heuristic only fills its gaps.
// A confident AI negative rejects the article even when the heuristic matched.
// A failed AI extraction falls back to a relevant heuristic candidate.
func (n *Normalizer) Normalize(in Inputs) (models.OutbreakRecord, error) {
	if sourceURL(in) == "" {
		return models.OutbreakRecord{}, ErrNoSourceURL
	}

	var (
		rec    models.OutbreakRecord
		method string
	)

	switch {
	case in.AI.Outcome == models.OutcomeNegative:
		return models.OutbreakRecord{}, ErrConfidentNegative

	case in.AI.Outcome == models.OutcomeRelevant && in.AI.Candidate != nil:
		rec = n.coerce(in.AI.Candidate)
		method = models.MethodAI
		if in.Heuristic != nil {
			if fill(&rec, n.coerce(in.Heuristic)) {
				method = models.MethodAIHeuristic
			}
		}

	case in.Heuristic != nil && in.Heuristic.IsRelevant:
		rec = n.coerce(in.Heuristic)
		method = models.MethodHeuristic

	default:
		return models.OutbreakRecord{}, ErrNotRelevant
	}

	if rec.SourceURL == "" {
		rec.SourceURL = sourceURL(in)
	}
	if rec.CaseFatalityRate == nil {
		rec.CaseFatalityRate = fatalityRate(rec.ReportedCases, rec.ReportedDeaths)
	}

	rec.ID = processing.BuildRecordID(rec.SourceURL)
	rec.ExtractionMethod = method
	rec.CreatedAt = n.now().UTC()
	return rec, nil
}

func sourceURL(in Inputs) string {
	if in.AI.Candidate != nil {
		if u := trimmed(in.AI.Candidate.SourceURL); u != "" {
			return u
		}
	}
	if in.Heuristic != nil {
		return trimmed(in.Heuristic.SourceURL)
	}
	return ""
}

// fill copies secondary values into fields the primary left empty or unknown.
// It reports whether anything was copied.
func fill(dst *models.OutbreakRecord, src models.OutbreakRecord) bool {
	filled := false

	str := func(d *string, s string) {
		if *d == "" && s != "" {
			*d = s
			filled = true
		}
	}
	num := func(d **int, s *int) {
		if *d == nil && s != nil {
			*d = s
			filled = true
		}
	}
	flt := func(d **float64, s *float64) {
		if *d == nil && s != nil {
			*d = s
			filled = true
		}
	}
	lst := func(d *[]string, s []string) {
		if len(*d) == 0 && len(s) > 0 {
			*d = s
			filled = true
		}
	}

	str(&dst.DiseaseName, src.DiseaseName)
	str(&dst.LocationCountry, src.LocationCountry)
	str(&dst.LocationRegion, src.LocationRegion)
	str(&dst.OutbreakDate, src.OutbreakDate)
	str(&dst.SeverityReasoning, src.SeverityReasoning)
	str(&dst.KeyNumbers, src.KeyNumbers)
	str(&dst.IntelligenceSummary, src.IntelligenceSummary)
	str(&dst.SourceOrganization, src.SourceOrganization)
	str(&dst.NewsTitle, src.NewsTitle)
	str(&dst.PublishedAt, src.PublishedAt)

	num(&dst.ReportedCases, src.ReportedCases)
	num(&dst.ReportedDeaths, src.ReportedDeaths)
	flt(&dst.CaseFatalityRate, src.CaseFatalityRate)
	flt(&dst.UrgencyScore, src.UrgencyScore)

	lst(&dst.AgenciesInvolved, src.AgenciesInvolved)
	lst(&dst.KeyInsights, src.KeyInsights)
	lst(&dst.StakeholdersAffected, src.StakeholdersAffected)
	lst(&dst.Tags, src.Tags)

	if dst.Coordinates == nil && src.Coordinates != nil {
		dst.Coordinates = src.Coordinates
		filled = true
	}

	if dst.PathogenType == models.PathogenUnknown && src.PathogenType != models.PathogenUnknown {
		dst.PathogenType = src.PathogenType
		filled = true
	}
	if dst.OutbreakStatus == models.StatusUnknown && src.OutbreakStatus != models.StatusUnknown {
		dst.OutbreakStatus = src.OutbreakStatus
		filled = true
	}
	if dst.SeverityLevel == models.SeverityUnknown && src.SeverityLevel != models.SeverityUnknown {
		dst.SeverityLevel = src.SeverityLevel
		filled = true
	}
	if dst.TransmissionRisk == models.TransmissionUnknown && src.TransmissionRisk != models.TransmissionUnknown {
		dst.TransmissionRisk = src.TransmissionRisk
		filled = true
	}
	if dst.SpreadPotential == models.SpreadUnknown && src.SpreadPotential != models.SpreadUnknown {
		dst.SpreadPotential = src.SpreadPotential
		filled = true
	}
	if dst.ResponseLevel == models.ResponseUnknown && src.ResponseLevel != models.ResponseUnknown {
		dst.ResponseLevel = src.ResponseLevel
		filled = true
	}
	if dst.DataReliability == models.ReliabilityUnknown && src.DataReliability != models.ReliabilityUnknown {
		dst.DataReliability = src.DataReliability
		filled = true
	}

	return filled
}

func fatalityRate(cases, deaths *int) *float64 {
	if cases == nil || deaths == nil || *cases <= 0 || *deaths > *cases {
		return nil
	}
	r := math.Round(float64(*deaths)/float64(*cases)*10000) / 10000
	return &r
}
