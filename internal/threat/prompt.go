package threat

import (
	"fmt"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

const systemPrompt = "You are a global health security analyst. " +
	"You answer with a single JSON object and nothing else."

var schema = fmt.Sprintf(`{
  "globalThreatLevel": "%s",
  "threatReasoning": "two sentences explaining the level",
  "emergingPatterns": ["pattern across outbreaks"],
  "geographicClusters": ["region or group of countries"],
  "recommendations": ["action for public health responders"],
  "watchList": ["disease or location to monitor"],
  "summary": "short overall summary"
}`, models.JoinValues(models.SeverityLevels))

func renderPrompt(records []models.OutbreakRecord) string {
	return fmt.Sprintf(`Assess the global outbreak threat from the %d most recent outbreak records below.

Each line is: disease | country | severity | reported cases

%s

Answer with JSON matching this schema exactly:
%s`, len(records), digest(records), schema)
}
