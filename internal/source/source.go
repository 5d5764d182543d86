// Package source defines the article source contract and the filters shared by collectors.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

// MaxLookback is the widest window any source is asked for.
const MaxLookback = 30 * 24 * time.Hour

// Request describes one collection round.
type Request struct {
	Keywords []string
	Lookback time.Duration
	Max      int
}

// Window returns the clamped lookback.
func (r Request) Window() time.Duration {
	if r.Lookback <= 0 || r.Lookback > MaxLookback {
		return MaxLookback
	}
	return r.Lookback
}

// Source returns an ordered batch of articles. Pagination and backoff are its own concern.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]models.RawArticle, error)
}

// Usable reports whether an article has a URL and at least a title or a description.
func Usable(a models.RawArticle) bool {
	if strings.TrimSpace(a.URL) == "" {
		return false
	}
	return strings.TrimSpace(a.Title) != "" || strings.TrimSpace(a.Description) != ""
}

// Unique drops repeated URLs, keeping the first occurrence.
func Unique(articles []models.RawArticle) []models.RawArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.RawArticle, 0, len(articles))
	for _, a := range articles {
		key := strings.TrimSpace(a.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

var healthIndicators = []string{
	"health", "medical", "healthcare", "medicine", "doctor", "hospital",
	"patient", "treatment", "therapy", "diagnosis", "disease", "illness",
	"outbreak", "epidemic", "pandemic", "virus", "infection", "vaccine",
}

// HealthRelated is the coarse pre-filter applied before articles reach the pipeline.
func HealthRelated(a models.RawArticle) bool {
	text := strings.ToLower(a.Title + " " + a.Description + " " + a.Content)
	for _, indicator := range healthIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}
