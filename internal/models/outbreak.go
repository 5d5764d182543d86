package models

import "time"

// DateLayout is the canonical form of OutbreakDate.
const DateLayout = "2006-01-02"

// Extraction methods recorded on persisted records.
const (
	MethodAI          = "ai"
	MethodAIHeuristic = "ai+heuristic"
	MethodHeuristic   = "heuristic"
)

// OutbreakRecord represents the canonical structure stored for one admitted article.
// SourceURL is its unique identity.
type OutbreakRecord struct {
	ID string `json:"id"`

	DiseaseName     string       `json:"diseaseName"`
	PathogenType    PathogenType `json:"pathogenType"`
	LocationCountry string       `json:"locationCountry"`
	LocationRegion  string       `json:"locationRegion,omitempty"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`

	OutbreakDate   string         `json:"outbreakDate,omitempty"`
	OutbreakStatus OutbreakStatus `json:"outbreakStatus"`

	ReportedCases    *int     `json:"reportedCases"`
	ReportedDeaths   *int     `json:"reportedDeaths"`
	CaseFatalityRate *float64 `json:"caseFatalityRate,omitempty"`

	SeverityLevel     SeverityLevel    `json:"severityLevel"`
	SeverityReasoning string           `json:"severityReasoning,omitempty"`
	UrgencyScore      *float64         `json:"urgencyScore,omitempty"`
	TransmissionRisk  TransmissionRisk `json:"transmissionRisk"`
	SpreadPotential   SpreadPotential  `json:"spreadPotential"`
	ResponseLevel     ResponseLevel    `json:"responseLevel"`

	AgenciesInvolved     []string `json:"agenciesInvolved"`
	KeyInsights          []string `json:"keyInsights"`
	StakeholdersAffected []string `json:"stakeholdersAffected"`
	Tags                 []string `json:"tags"`
	KeyNumbers           string   `json:"keyNumbers,omitempty"`

	IntelligenceSummary string          `json:"intelligenceSummary,omitempty"`
	ConfidenceScore     float64         `json:"confidenceScore"`
	DataReliability     DataReliability `json:"dataReliability"`

	SourceURL          string `json:"sourceUrl"`
	SourceOrganization string `json:"sourceOrganization,omitempty"`
	NewsTitle          string `json:"newsTitle,omitempty"`
	PublishedAt        string `json:"publishedAt,omitempty"`

	ExtractionMethod string    `json:"extractionMethod"`
	CreatedAt        time.Time `json:"createdAt"`
}

// HasNumbers reports whether any case or death count was extracted.
func (r OutbreakRecord) HasNumbers() bool {
	return r.ReportedCases != nil || r.ReportedDeaths != nil
}

// AssessmentSource tells how a ThreatAssessment was produced.
type AssessmentSource string

const (
	AssessmentModel       AssessmentSource = "model"
	AssessmentStatic      AssessmentSource = "static"
	AssessmentUnavailable AssessmentSource = "unavailable"
)

// ThreatAssessment summarizes a window of recent records.
type ThreatAssessment struct {
	ID                 string           `json:"id"`
	GlobalThreatLevel  SeverityLevel    `json:"globalThreatLevel"`
	ThreatReasoning    string           `json:"threatReasoning"`
	EmergingPatterns   []string         `json:"emergingPatterns"`
	GeographicClusters []string         `json:"geographicClusters"`
	Recommendations    []string         `json:"recommendations"`
	WatchList          []string         `json:"watchList"`
	Summary            string           `json:"summary"`
	Source             AssessmentSource `json:"source"`
	RecordCount        int              `json:"recordCount"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}
