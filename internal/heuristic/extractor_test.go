package heuristic_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/heuristic"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

func intPtr(v int) *int { return &v }

func newExtractor(t *testing.T) *heuristic.Extractor {
	t.Helper()
	ex, err := heuristic.NewDefault()
	require.NoError(t, err)
	return ex
}

func TestExtractCholeraInSudan(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{
		Title:       "Sudan: 500 confirmed cholera cases and 15 deaths reported, WHO declares emergency",
		URL:         "https://example.org/sudan-cholera",
		PublishedAt: "2025-03-14T09:00:00Z",
		SourceName:  "Reuters",
	})

	require.Equal(t, "Cholera", models.Deref(c.DiseaseName))
	require.Equal(t, models.PathogenBacterial, c.PathogenType)
	require.Equal(t, "Sudan", models.Deref(c.LocationCountry))
	require.Nil(t, c.LocationRegion)
	require.NotNil(t, c.ReportedCases)
	require.Equal(t, 500, *c.ReportedCases)
	require.NotNil(t, c.ReportedDeaths)
	require.Equal(t, 15, *c.ReportedDeaths)
	require.Equal(t, models.SeverityHigh, c.SeverityLevel)
	require.InDelta(t, 0.8, c.ConfidenceScore, 1e-9)
	require.True(t, c.IsRelevant)
	require.Equal(t, models.StatusActive, c.OutbreakStatus)
	require.Equal(t, "2025-03-14", c.OutbreakDate)
	require.JSONEq(t, `{"cases":500,"deaths":15}`, string(c.KeyNumbers))
	require.Equal(t, "https://example.org/sudan-cholera", c.SourceURL)
	require.Equal(t, "Reuters", c.SourceOrganization)
}

func TestExtractRegionFromPossessive(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{
		Title:       "Rift Valley fever outbreak spreads in Kenya's Rift Valley region",
		Description: "Health officials confirmed 1,200 cases among livestock herders.",
	})

	require.Equal(t, "Rift Valley Fever", models.Deref(c.DiseaseName))
	require.Equal(t, "Kenya", models.Deref(c.LocationCountry))
	require.Equal(t, "Rift Valley", models.Deref(c.LocationRegion))
	require.NotNil(t, c.ReportedCases)
	require.Equal(t, 1200, *c.ReportedCases)
	require.Nil(t, c.ReportedDeaths)
}

func TestExtractLongestTermWins(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{Title: "South Sudan reports dengue fever outbreak"})

	require.Equal(t, "Dengue Fever", models.Deref(c.DiseaseName))
	require.Equal(t, "South Sudan", models.Deref(c.LocationCountry))
}

func TestExtractCountryNeedsWordBoundary(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{Title: "A woman was hospitalized with measles"})

	require.Equal(t, "Measles", models.Deref(c.DiseaseName))
	require.Nil(t, c.LocationCountry)
	require.False(t, c.IsRelevant)
}

func TestExtractFallbackDisease(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{
		Title:       "Mysterious virus detected in Peru",
		Description: "Officials investigate oyapock virus cluster after 12 cases.",
	})

	require.Equal(t, "Oyapock Virus", models.Deref(c.DiseaseName))
	require.Equal(t, models.PathogenViral, c.PathogenType)
	require.Equal(t, "Peru", models.Deref(c.LocationCountry))
	require.True(t, c.IsRelevant)
}

func TestExtractNoDiseaseIsIrrelevant(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{Title: "Stock markets rally in Japan"})

	require.Nil(t, c.DiseaseName)
	require.Equal(t, "Japan", models.Deref(c.LocationCountry))
	require.Equal(t, models.SeverityLow, c.SeverityLevel)
	require.Zero(t, c.ConfidenceScore)
	require.False(t, c.IsRelevant)
	require.Nil(t, c.KeyNumbers)
}

func TestExtractRelevantWithNumbersBelowThreshold(t *testing.T) {
	ex := newExtractor(t)

	// No outbreak keyword: confidence is 0.1 (disease) + 0.1 (numbers).
	c := ex.Extract(models.RawArticle{Title: "Mpox: 3 people died in Ghana"})

	require.Equal(t, "Mpox", models.Deref(c.DiseaseName))
	require.Equal(t, "Ghana", models.Deref(c.LocationCountry))
	require.Less(t, c.ConfidenceScore, heuristic.RelevanceThreshold)
	require.NotNil(t, c.ReportedDeaths)
	require.Equal(t, 3, *c.ReportedDeaths)
	require.True(t, c.IsRelevant)
}

func TestExtractIgnoresDigitsInsideDiseaseNames(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		name   string
		title  string
		cases  *int
		deaths *int
	}{
		{name: "covid cases", title: "Brazil sees COVID-19 cases climb"},
		{name: "covid deaths", title: "Brazil COVID-19 deaths rise again"},
		{name: "h5n1", title: "Cambodia reports H5N1 cases in poultry workers"},
		{name: "h7n9 with count", title: "China confirms H7N9 infections, 12 new cases reported", cases: intPtr(12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ex.Extract(models.RawArticle{Title: tt.title})
			require.Equal(t, tt.cases, c.ReportedCases)
			require.Equal(t, tt.deaths, c.ReportedDeaths)
		})
	}
}

func TestExtractSingleDeathCountsAsHighSeverity(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{Title: "Mpox: 1 death in Ghana"})

	require.NotNil(t, c.ReportedDeaths)
	require.Equal(t, 1, *c.ReportedDeaths)
	require.Equal(t, models.SeverityModerate, c.SeverityLevel)
	require.Equal(t, "1 high-severity and 0 moderate-severity indicators", models.Deref(c.SeverityReasoning))
}

func TestExtractStatusCues(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{Title: "Ebola outbreak in Uganda declared over"})
	require.Equal(t, models.StatusResolved, c.OutbreakStatus)

	c = ex.Extract(models.RawArticle{Title: "Measles outbreak in Canada under control"})
	require.Equal(t, models.StatusControlled, c.OutbreakStatus)
}

func TestExtractSeverityTiers(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		name  string
		title string
		want  models.SeverityLevel
	}{
		{name: "two high", title: "Cholera epidemic: deaths mount in Yemen", want: models.SeverityHigh},
		{name: "one high", title: "Cholera emergency in Yemen", want: models.SeverityModerate},
		{name: "two moderate", title: "Cholera outbreak rising in Yemen", want: models.SeverityModerate},
		{name: "none", title: "Cholera vaccine shipment reaches Yemen", want: models.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ex.Extract(models.RawArticle{Title: tt.title})
			require.Equal(t, tt.want, c.SeverityLevel)
			require.NotNil(t, c.SeverityReasoning)
		})
	}
}

func TestExtractConfidenceBounded(t *testing.T) {
	ex := newExtractor(t)

	inputs := []models.RawArticle{
		{},
		{Title: "outbreak epidemic pandemic cases confirmed infected infections cluster spread surge deaths emergency"},
		{Title: "cholera dengue ebola measles mpox polio zika malaria rabies anthrax", Content: "100 cases 20 deaths"},
		{Description: " \t\n"},
	}

	for _, in := range inputs {
		c := ex.Extract(in)
		require.GreaterOrEqual(t, c.ConfidenceScore, 0.0)
		require.LessOrEqual(t, c.ConfidenceScore, 1.0)
		require.NotNil(t, c.Tags)
		require.NotNil(t, c.AgenciesInvolved)
	}
}

func TestExtractTitleFallsBackToDescription(t *testing.T) {
	ex := newExtractor(t)

	c := ex.Extract(models.RawArticle{Description: "Polio detected in wastewater samples. More tests planned."})
	require.Equal(t, "Polio detected in wastewater samples", c.NewsTitle)
}

func TestLoadLexicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	content := `
diseases:
  - name: Blue Fever
    pathogen: viral
    terms: [blue fever]
countries:
  - name: Atlantis
keywords:
  outbreak: [outbreak]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	lex, err := heuristic.LoadLexicon(path)
	require.NoError(t, err)

	c := heuristic.New(lex).Extract(models.RawArticle{Title: "Blue fever outbreak in Atlantis"})
	require.Equal(t, "Blue Fever", models.Deref(c.DiseaseName))
	require.Equal(t, "Atlantis", models.Deref(c.LocationCountry))
	require.InDelta(t, 0.3, c.ConfidenceScore, 1e-9)
	require.True(t, c.IsRelevant)
}

func TestLoadLexiconRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords: {}\n"), 0o600))

	_, err := heuristic.LoadLexicon(path)
	require.Error(t, err)

	_, err = heuristic.LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
