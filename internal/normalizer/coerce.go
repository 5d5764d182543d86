package normalizer

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

// coerce maps one candidate onto the canonical shape without merging anything.
func (n *Normalizer) coerce(c *models.Candidate) models.OutbreakRecord {
	return models.OutbreakRecord{
		DiseaseName:     text(c.DiseaseName),
		PathogenType:    models.ParsePathogenType(string(c.PathogenType)),
		LocationCountry: text(c.LocationCountry),
		LocationRegion:  text(c.LocationRegion),
		Coordinates:     coordinates(c.Coordinates),

		OutbreakDate:   n.date(c.OutbreakDate, c.SourceURL),
		OutbreakStatus: models.ParseOutbreakStatus(string(c.OutbreakStatus)),

		ReportedCases:    count(c.ReportedCases),
		ReportedDeaths:   count(c.ReportedDeaths),
		CaseFatalityRate: rate(c.CaseFatalityRate),

		SeverityLevel:     models.ParseSeverityLevel(string(c.SeverityLevel)),
		SeverityReasoning: text(c.SeverityReasoning),
		UrgencyScore:      score(c.UrgencyScore),
		TransmissionRisk:  models.ParseTransmissionRisk(string(c.TransmissionRisk)),
		SpreadPotential:   models.ParseSpreadPotential(string(c.SpreadPotential)),
		ResponseLevel:     models.ParseResponseLevel(string(c.ResponseLevel)),

		AgenciesInvolved:     list(c.AgenciesInvolved),
		KeyInsights:          list(c.KeyInsights),
		StakeholdersAffected: list(c.StakeholdersAffected),
		Tags:                 list(c.Tags),
		KeyNumbers:           keyNumbers(c.KeyNumbers),

		IntelligenceSummary: text(c.IntelligenceSummary),
		ConfidenceScore:     clamp(c.ConfidenceScore),
		DataReliability:     models.ParseDataReliability(string(c.DataReliability)),

		SourceURL:          strings.TrimSpace(c.SourceURL),
		SourceOrganization: strings.TrimSpace(c.SourceOrganization),
		NewsTitle:          strings.TrimSpace(c.NewsTitle),
		PublishedAt:        strings.TrimSpace(c.PublishedAt),
	}
}

// date keeps only strict YYYY-MM-DD values; anything else is dropped and logged.
func (n *Normalizer) date(raw, url string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if _, err := time.Parse(models.DateLayout, raw); err != nil {
		n.log.Debug("discarding unparseable outbreak date",
			"url", url,
			"value", raw)
		return ""
	}
	return raw
}

func text(s *string) string {
	v := strings.TrimSpace(models.Deref(s))
	if strings.EqualFold(v, "null") || strings.EqualFold(v, models.Unknown) {
		return ""
	}
	return v
}

// list trims entries, drops blanks and repeats, and never returns nil.
func list(in models.StringList) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// keyNumbers renders free-form numeric context as a canonical string.
// JSON strings pass through unchanged; objects and arrays are re-encoded compactly with sorted keys.
func keyNumbers(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
	case []any:
		if len(t) == 0 {
			return ""
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func count(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	n := *v
	return &n
}

// rate reads percentages above 1 as whole-number percent.
func rate(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return nil
	}
	r := *v
	if r > 1 {
		if r > 100 {
			return nil
		}
		r /= 100
	}
	return &r
}

func score(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	s := clamp(*v)
	return &s
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func coordinates(c *models.Coordinates) *models.Coordinates {
	if c == nil {
		return nil
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return nil
	}
	if c.Lat == 0 && c.Lng == 0 {
		return nil
	}
	out := *c
	return &out
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
