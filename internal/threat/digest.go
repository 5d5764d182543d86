package threat

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

const (
	diseaseWidth  = 28
	countryWidth  = 22
	severityWidth = 8
)

// digest renders one aligned line per record: disease | country | severity | cases.
func digest(records []models.OutbreakRecord) string {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(cell(rec.DiseaseName, diseaseWidth))
		b.WriteString(" | ")
		b.WriteString(cell(rec.LocationCountry, countryWidth))
		b.WriteString(" | ")
		b.WriteString(cell(string(rec.SeverityLevel), severityWidth))
		b.WriteString(" | ")
		if rec.ReportedCases != nil {
			b.WriteString(strconv.Itoa(*rec.ReportedCases))
		} else {
			b.WriteString(models.Unknown)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func cell(s string, width int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = models.Unknown
	}
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
