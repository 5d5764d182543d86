package analyzer

import (
	"fmt"
	"strings"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

const systemPrompt = "You are a public health intelligence analyst specialising in infectious disease outbreaks. " +
	"You answer with a single JSON object and nothing else."

// schema is rendered once; enum sets come from the models package so parsing and prompting agree.
var schema = fmt.Sprintf(`{
  "isRelevant": true or false,
  "confidenceScore": number between 0.0 and 1.0,
  "diseaseName": "disease or pathogen name, or null",
  "pathogenType": "%s",
  "locationCountry": "primary country affected, or null",
  "locationRegion": "state, province or region, or null",
  "coordinates": {"lat": number, "lng": number} or null,
  "outbreakDate": "YYYY-MM-DD or null",
  "outbreakStatus": "%s",
  "reportedCases": integer or null,
  "reportedDeaths": integer or null,
  "caseFatalityRate": number between 0.0 and 1.0 or null,
  "severityLevel": "%s",
  "severityReasoning": "one sentence explaining the severity",
  "urgencyScore": number between 0.0 and 1.0,
  "transmissionRisk": "%s",
  "spreadPotential": "%s",
  "responseLevel": "%s",
  "agenciesInvolved": ["agency"],
  "keyInsights": ["insight"],
  "stakeholdersAffected": ["group"],
  "tags": ["tag"],
  "keyNumbers": {"label": "value with context"},
  "intelligenceSummary": "2-3 sentence summary",
  "dataReliability": "%s"
}`,
	models.JoinValues(models.PathogenTypes),
	models.JoinValues(models.OutbreakStatuses),
	models.JoinValues(models.SeverityLevels),
	models.JoinValues(models.TransmissionRisks),
	models.JoinValues(models.SpreadPotentials),
	models.JoinValues(models.ResponseLevels),
	models.JoinValues(models.DataReliabilities),
)

const guidelines = `Guidelines:
- isRelevant is true only when the article reports a specific infectious disease outbreak, cluster or epidemic affecting people or animals.
- General health policy, research, funding or wellness stories are not relevant; answer isRelevant=false with a confidenceScore for that judgement.
- Use null for any value the article does not state. Never invent numbers.
- Severity levels:
  - low: isolated cases, local monitoring
  - moderate: growing case counts, regional concern
  - high: deaths, national response, rapid spread
  - critical: international emergency or health system overwhelmed
- Tags should be short and specific, for example "cholera", "vaccination_campaign", "cross_border".`

func renderPrompt(article models.RawArticle) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following news article and extract structured outbreak intelligence.\n\n")
	sb.WriteString("Article:\n")
	fmt.Fprintf(&sb, "Title: %s\n", article.Title)
	fmt.Fprintf(&sb, "Source: %s\n", article.SourceName)
	fmt.Fprintf(&sb, "Published: %s\n", article.PublishedAt)
	fmt.Fprintf(&sb, "URL: %s\n", article.URL)
	fmt.Fprintf(&sb, "Description: %s\n", article.Description)
	fmt.Fprintf(&sb, "Content: %s\n\n", article.Content)
	sb.WriteString("Respond with JSON in exactly this format:\n")
	sb.WriteString(schema)
	sb.WriteString("\n\n")
	sb.WriteString(guidelines)
	sb.WriteString("\n\nRespond with only the JSON object, no additional text.")
	return sb.String()
}
