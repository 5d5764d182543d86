package elasticsearch

// indexMapping keeps filterable fields as keywords so term filters and aggregations work.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":                   {"type": "keyword"},
      "diseaseName":          {"type": "keyword"},
      "pathogenType":         {"type": "keyword"},
      "locationCountry":      {"type": "keyword"},
      "locationRegion":       {"type": "keyword"},
      "coordinates": {
        "properties": {
          "lat": {"type": "float"},
          "lng": {"type": "float"}
        }
      },
      "outbreakDate":         {"type": "date", "format": "yyyy-MM-dd"},
      "outbreakStatus":       {"type": "keyword"},
      "reportedCases":        {"type": "integer"},
      "reportedDeaths":       {"type": "integer"},
      "caseFatalityRate":     {"type": "float"},
      "severityLevel":        {"type": "keyword"},
      "severityReasoning":    {"type": "text"},
      "urgencyScore":         {"type": "float"},
      "transmissionRisk":     {"type": "keyword"},
      "spreadPotential":      {"type": "keyword"},
      "responseLevel":        {"type": "keyword"},
      "agenciesInvolved":     {"type": "keyword"},
      "keyInsights":          {"type": "text"},
      "stakeholdersAffected": {"type": "keyword"},
      "tags":                 {"type": "keyword"},
      "keyNumbers":           {"type": "keyword", "index": false},
      "intelligenceSummary":  {"type": "text"},
      "confidenceScore":      {"type": "float"},
      "dataReliability":      {"type": "keyword"},
      "sourceUrl":            {"type": "keyword"},
      "sourceOrganization":   {"type": "keyword"},
      "newsTitle":            {"type": "text"},
      "publishedAt":          {"type": "keyword"},
      "extractionMethod":     {"type": "keyword"},
      "createdAt":            {"type": "date"}
    }
  }
}`
