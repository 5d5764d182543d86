package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RawArticle is an already-fetched news item as delivered by a source.
// No field is guaranteed non-empty; URL is the only admissible identity.
type RawArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	SourceName  string `json:"sourceName"`
}

// Text joins the analysable fields.
func (a RawArticle) Text() string {
	return strings.TrimSpace(a.Title + " " + a.Description + " " + a.Content)
}

// StringList decodes from either a JSON array or a single value.
// A scalar is wrapped into a one-element list and null decodes to an empty list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = StringList{}
		return nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		out := make(StringList, 0, len(items))
		for _, item := range items {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}

	if s, ok := scalarString(data); ok {
		*l = StringList{s}
		return nil
	}
	*l = StringList{string(data)}
	return nil
}

func scalarString(data json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, true
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	return string(trimmed), true
}

// Coordinates is an optional point reported for the outbreak.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate is one extractor's unvalidated guess about an article.
type Candidate struct {
	DiseaseName     *string      `json:"diseaseName"`
	PathogenType    PathogenType `json:"pathogenType"`
	LocationCountry *string      `json:"locationCountry"`
	LocationRegion  *string      `json:"locationRegion"`
	Coordinates     *Coordinates `json:"coordinates"`

	OutbreakDate   string         `json:"outbreakDate"`
	OutbreakStatus OutbreakStatus `json:"outbreakStatus"`

	ReportedCases    *int     `json:"reportedCases"`
	ReportedDeaths   *int     `json:"reportedDeaths"`
	CaseFatalityRate *float64 `json:"caseFatalityRate"`

	SeverityLevel     SeverityLevel    `json:"severityLevel"`
	SeverityReasoning *string          `json:"severityReasoning"`
	UrgencyScore      *float64         `json:"urgencyScore"`
	TransmissionRisk  TransmissionRisk `json:"transmissionRisk"`
	SpreadPotential   SpreadPotential  `json:"spreadPotential"`
	ResponseLevel     ResponseLevel    `json:"responseLevel"`

	AgenciesInvolved     StringList `json:"agenciesInvolved"`
	KeyInsights          StringList `json:"keyInsights"`
	StakeholdersAffected StringList `json:"stakeholdersAffected"`
	Tags                 StringList `json:"tags"`

	// KeyNumbers is free-form numeric context, stored later as a canonical string.
	KeyNumbers json.RawMessage `json:"keyNumbers"`

	IntelligenceSummary *string         `json:"intelligenceSummary"`
	ConfidenceScore     float64         `json:"confidenceScore"`
	DataReliability     DataReliability `json:"dataReliability"`

	SourceURL          string `json:"sourceUrl"`
	SourceOrganization string `json:"sourceOrganization"`
	NewsTitle          string `json:"newsTitle"`
	PublishedAt        string `json:"publishedAt"`

	IsRelevant bool `json:"isRelevant"`
}

// Outcome separates a usable candidate from a confident negative and a failed extraction.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeRelevant
	OutcomeNegative
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRelevant:
		return "relevant"
	case OutcomeNegative:
		return "negative"
	default:
		return "failed"
	}
}

// Extraction is the tri-state result of the AI-assisted extractor.
type Extraction struct {
	Outcome   Outcome
	Candidate *Candidate
	Reason    string
}

// Failed builds an extraction that carries no candidate.
func Failed(reason string) Extraction {
	return Extraction{Outcome: OutcomeFailed, Reason: reason}
}

// StringPtr returns nil for blank input.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed value or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
