// Package heuristic scores raw article text against fixed lexicons.
// It is deterministic and never calls out of process.
package heuristic

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/processing"
)

const (
	// RelevanceThreshold is the confidence at which a candidate counts as relevant
	// even without numeric evidence.
	RelevanceThreshold = 0.3

	tagLimit     = 5
	tagMinLength = 4
	titleWords   = 12
)

// countPrefix keeps digits inside names such as COVID-19 or H5N1 from reading as counts.
const countPrefix = `(?:^|[^\p{L}\p{N}-])`

var (
	casePatterns = compileAll(
		countPrefix+`(\d[\d,]*)\s+(?:new\s+)?cases`,
		countPrefix+`(\d[\d,]*)\s+confirmed`,
		countPrefix+`(\d[\d,]*)\s+(?:suspected|probable|reported)\s+cases`,
		countPrefix+`(\d[\d,]*)\s+(?:people\s+)?infected`,
		countPrefix+`(\d[\d,]*)\s+infections`,
	)
	deathPatterns = compileAll(
		countPrefix+`(\d[\d,]*)\s+deaths?`,
		countPrefix+`(\d[\d,]*)\s+fatalities`,
		countPrefix+`(\d[\d,]*)\s+(?:people\s+|persons\s+)?(?:have\s+)?died`,
		`killed\s+(\d[\d,]*)`,
		`death\s+toll\s+(?:of\s+|at\s+|to\s+|rises\s+to\s+|reached\s+)?(\d[\d,]*)`,
	)
	fallbackDisease = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])([a-z][a-z-]{2,})\s+(virus|fever|disease)(?:$|[^\p{L}\p{N}])`)
)

type term struct {
	surface string
	re      *regexp.Regexp
}

type diseaseTerm struct {
	term
	name     string
	pathogen models.PathogenType
}

type countryTerm struct {
	term
	name     string
	regionRe *regexp.Regexp
}

type statusCue struct {
	status models.OutbreakStatus
	terms  []term
}

// Extractor applies the lexicon scoring rules to an article.
type Extractor struct {
	diseases  []diseaseTerm
	countries []countryTerm
	outbreak  []term
	high      []term
	moderate  []term
	status    []statusCue
	generic   map[string]struct{}
}

// New compiles a lexicon into an Extractor.
func New(lex Lexicon) *Extractor {
	e := &Extractor{
		outbreak: compileTerms(lex.Keywords.Outbreak),
		high:     compileTerms(lex.Keywords.SeverityHigh),
		moderate: compileTerms(lex.Keywords.SeverityModerate),
		status: []statusCue{
			{status: models.StatusResolved, terms: compileTerms(lex.Status.Resolved)},
			{status: models.StatusControlled, terms: compileTerms(lex.Status.Controlled)},
			{status: models.StatusEmerging, terms: compileTerms(lex.Status.Emerging)},
			{status: models.StatusOngoing, terms: compileTerms(lex.Status.Ongoing)},
		},
		generic: make(map[string]struct{}, len(lex.GenericQualifiers)),
	}

	for _, q := range lex.GenericQualifiers {
		e.generic[strings.ToLower(strings.TrimSpace(q))] = struct{}{}
	}

	for _, d := range lex.Diseases {
		for _, s := range d.Terms {
			e.diseases = append(e.diseases, diseaseTerm{
				term:     newTerm(s),
				name:     d.Name,
				pathogen: models.ParsePathogenType(d.Pathogen),
			})
		}
	}
	sort.SliceStable(e.diseases, func(i, j int) bool {
		return len(e.diseases[i].surface) > len(e.diseases[j].surface)
	})

	for _, c := range lex.Countries {
		for _, s := range append([]string{c.Name}, c.Aliases...) {
			e.countries = append(e.countries, countryTerm{
				term:     newTerm(s),
				name:     c.Name,
				regionRe: regionPattern(s),
			})
		}
	}
	sort.SliceStable(e.countries, func(i, j int) bool {
		return len(e.countries[i].surface) > len(e.countries[j].surface)
	})

	return e
}

// NewDefault builds an Extractor over the embedded lexicon.
func NewDefault() (*Extractor, error) {
	lex, err := DefaultLexicon()
	if err != nil {
		return nil, err
	}
	return New(lex), nil
}

// Extract derives a candidate from the article text. It never fails.
func (e *Extractor) Extract(article models.RawArticle) models.Candidate {
	text := processing.NormalizeText(article.Text())
	lower := strings.ToLower(text)

	c := models.Candidate{
		OutbreakStatus:       models.StatusActive,
		SourceURL:            strings.TrimSpace(article.URL),
		SourceOrganization:   strings.TrimSpace(article.SourceName),
		NewsTitle:            newsTitle(article),
		PublishedAt:          strings.TrimSpace(article.PublishedAt),
		AgenciesInvolved:     models.StringList{},
		KeyInsights:          models.StringList{},
		StakeholdersAffected: models.StringList{},
		Tags:                 models.StringList(processing.ExtractKeywords(article.Title+" "+article.Description, tagLimit, tagMinLength)),
	}
	if c.Tags == nil {
		c.Tags = models.StringList{}
	}

	if ts := processing.ParseTimestamp(article.PublishedAt); !ts.IsZero() {
		c.OutbreakDate = ts.UTC().Format(models.DateLayout)
	}

	name, pathogen, diseaseHits := e.matchDisease(lower)
	if name != "" {
		c.DiseaseName = &name
		c.PathogenType = pathogen
	}

	if country, region := e.matchCountry(lower, text); country != "" {
		c.LocationCountry = &country
		c.LocationRegion = models.StringPtr(region)
	}

	c.ReportedCases = firstNumber(casePatterns, lower)
	c.ReportedDeaths = firstNumber(deathPatterns, lower)
	hasNumbers := c.ReportedCases != nil || c.ReportedDeaths != nil
	if hasNumbers {
		c.KeyNumbers = keyNumbers(c.ReportedCases, c.ReportedDeaths)
	}

	high := countHits(e.high, lower)
	moderate := countHits(e.moderate, lower)
	c.SeverityLevel = severity(high, moderate)
	reasoning := fmt.Sprintf("%d high-severity and %d moderate-severity indicators", high, moderate)
	c.SeverityReasoning = &reasoning

	for _, cue := range e.status {
		if countHits(cue.terms, lower) > 0 {
			c.OutbreakStatus = cue.status
			break
		}
	}

	c.ConfidenceScore = confidence(countHits(e.outbreak, lower), diseaseHits, hasNumbers)
	c.IsRelevant = c.DiseaseName != nil && c.LocationCountry != nil &&
		(c.ConfidenceScore >= RelevanceThreshold || hasNumbers)

	return c
}

// matchDisease returns the longest lexicon match, or the titlecased fallback phrase.
// hits counts distinct lexicon diseases present in the text.
func (e *Extractor) matchDisease(lower string) (string, models.PathogenType, int) {
	var (
		name     string
		pathogen models.PathogenType
		seen     = map[string]struct{}{}
	)
	for _, d := range e.diseases {
		if !d.re.MatchString(lower) {
			continue
		}
		if name == "" {
			name, pathogen = d.name, d.pathogen
		}
		seen[d.name] = struct{}{}
	}
	if name != "" {
		return name, pathogen, len(seen)
	}

	for _, m := range fallbackDisease.FindAllStringSubmatch(lower, -1) {
		if _, skip := e.generic[m[1]]; skip || processing.IsStopword(m[1]) {
			continue
		}
		phrase := m[1] + " " + m[2]
		pathogen = models.PathogenUnknown
		if m[2] == "virus" {
			pathogen = models.PathogenViral
		}
		return cases.Title(language.English).String(phrase), pathogen, 0
	}
	return "", "", 0
}

func (e *Extractor) matchCountry(lower, original string) (string, string) {
	for _, c := range e.countries {
		if !c.re.MatchString(lower) {
			continue
		}
		region := ""
		if m := c.regionRe.FindStringSubmatch(original); m != nil {
			region = strings.TrimSpace(m[1])
		}
		return c.name, region
	}
	return "", ""
}

func severity(high, moderate int) models.SeverityLevel {
	switch {
	case high >= 2:
		return models.SeverityHigh
	case high >= 1 || moderate >= 2:
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}

func confidence(outbreakHits, diseaseHits int, hasNumbers bool) float64 {
	score := math.Min(0.6, 0.2*float64(outbreakHits)) + math.Min(0.3, 0.1*float64(diseaseHits))
	if hasNumbers {
		score += 0.1
	}
	score = math.Min(1.0, score)
	return math.Round(score*100) / 100
}

func firstNumber(patterns []*regexp.Regexp, lower string) *int {
	for _, re := range patterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}

func keyNumbers(reported, died *int) json.RawMessage {
	numbers := map[string]int{}
	if reported != nil {
		numbers["cases"] = *reported
	}
	if died != nil {
		numbers["deaths"] = *died
	}
	raw, err := json.Marshal(numbers)
	if err != nil {
		return nil
	}
	return raw
}

func countHits(terms []term, lower string) int {
	hits := 0
	for _, t := range terms {
		if t.re.MatchString(lower) {
			hits++
		}
	}
	return hits
}

func newsTitle(article models.RawArticle) string {
	if title := strings.TrimSpace(article.Title); title != "" {
		return title
	}
	return processing.GenerateTitleFromText(strings.TrimSpace(article.Description), titleWords)
}

func newTerm(surface string) term {
	surface = strings.ToLower(strings.TrimSpace(surface))
	return term{
		surface: surface,
		re:      regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(surface) + `(?:$|[^\p{L}\p{N}])`),
	}
}

func compileTerms(surfaces []string) []term {
	out := make([]term, 0, len(surfaces))
	for _, s := range surfaces {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, newTerm(s))
	}
	return out
}

func regionPattern(country string) *regexp.Regexp {
	return regexp.MustCompile(`(?i:` + regexp.QuoteMeta(strings.TrimSpace(country)) + `)['’]s\s+(\p{Lu}[\p{L}-]*(?:\s+\p{Lu}[\p{L}-]*)*)`)
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
