// Package analyzer asks the completion capability for a structured reading of an article.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DeafMist/outbreak-radar/backend/internal/llm"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/processing"
)

// Defaults for the completion request.
const (
	DefaultMaxTokens   = 2500
	DefaultTemperature = 0.1
	DefaultTimeout     = 60 * time.Second

	responseSnippet = 300
)

// Options tune the completion request.
type Options struct {
	MaxTokens   int
	// Temperature nil selects DefaultTemperature; zero is a valid setting.
	Temperature *float64
	Timeout     time.Duration
}

// Analyzer turns articles into AI-assisted extractions.
type Analyzer struct {
	completer llm.Completer
	opts      Options
	log       *slog.Logger
}

// New constructs an Analyzer. Zero or nil options fall back to the defaults.
func New(completer llm.Completer, opts Options, log *slog.Logger) *Analyzer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == nil {
		t := DefaultTemperature
		opts.Temperature = &t
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Analyzer{
		completer: completer,
		opts:      opts,
		log:       logger.OrDiscard(log).With("component", "analyzer"),
	}
}

// Analyze never returns an error: any completion or parse problem yields a failed extraction.
func (a *Analyzer) Analyze(ctx context.Context, article models.RawArticle) models.Extraction {
	if a == nil || a.completer == nil {
		return models.Failed("analyzer disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	started := time.Now()
	text, err := a.completer.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      renderPrompt(article),
		MaxTokens:   a.opts.MaxTokens,
		Temperature: *a.opts.Temperature,
	})
	if err != nil {
		a.log.Warn("completion failed",
			slog.String("url", article.URL),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("err", err))
		return models.Failed(fmt.Sprintf("completion: %v", err))
	}

	return a.parse(text, article)
}

func (a *Analyzer) parse(text string, article models.RawArticle) models.Extraction {
	var resp response
	if err := llm.DecodeJSON(text, &resp); err != nil {
		a.log.Warn("unparseable completion",
			slog.String("url", article.URL),
			slog.String("response", processing.Snippet(text, responseSnippet)),
			slog.Any("err", err))
		return models.Failed(fmt.Sprintf("parse: %v", err))
	}

	relevant := resp.relevance()
	if relevant == nil {
		a.log.Warn("completion missing isRelevant", slog.String("url", article.URL))
		return models.Failed("missing isRelevant")
	}
	if resp.ConfidenceScore == nil || resp.ConfidenceScore.v == nil {
		a.log.Warn("completion missing confidenceScore", slog.String("url", article.URL))
		return models.Failed("missing confidenceScore")
	}

	c := resp.candidate(article, *relevant)
	if !*relevant {
		return models.Extraction{Outcome: models.OutcomeNegative, Candidate: &c}
	}
	return models.Extraction{Outcome: models.OutcomeRelevant, Candidate: &c}
}

type response struct {
	IsRelevant        *flexBool  `json:"isRelevant"`
	IsOutbreakRelated *flexBool  `json:"isOutbreakRelated"`
	ConfidenceScore   *flexFloat `json:"confidenceScore"`

	DiseaseName     llm.Text        `json:"diseaseName"`
	PathogenType    llm.Text        `json:"pathogenType"`
	LocationCountry llm.Text        `json:"locationCountry"`
	LocationRegion  llm.Text        `json:"locationRegion"`
	Coordinates     json.RawMessage `json:"coordinates"`

	OutbreakDate   llm.Text `json:"outbreakDate"`
	OutbreakStatus llm.Text `json:"outbreakStatus"`

	ReportedCases    flexInt   `json:"reportedCases"`
	ReportedDeaths   flexInt   `json:"reportedDeaths"`
	CaseFatalityRate flexFloat `json:"caseFatalityRate"`

	SeverityLevel     llm.Text  `json:"severityLevel"`
	SeverityReasoning llm.Text  `json:"severityReasoning"`
	UrgencyScore      flexFloat `json:"urgencyScore"`
	TransmissionRisk  llm.Text  `json:"transmissionRisk"`
	SpreadPotential   llm.Text  `json:"spreadPotential"`
	ResponseLevel     llm.Text  `json:"responseLevel"`

	AgenciesInvolved     models.StringList `json:"agenciesInvolved"`
	KeyInsights          models.StringList `json:"keyInsights"`
	StakeholdersAffected models.StringList `json:"stakeholdersAffected"`
	Tags                 models.StringList `json:"tags"`
	KeyNumbers           json.RawMessage   `json:"keyNumbers"`

	IntelligenceSummary llm.Text `json:"intelligenceSummary"`
	DataReliability     llm.Text `json:"dataReliability"`
}

func (r response) relevance() *bool {
	if r.IsRelevant != nil && r.IsRelevant.v != nil {
		return r.IsRelevant.v
	}
	if r.IsOutbreakRelated != nil && r.IsOutbreakRelated.v != nil {
		return r.IsOutbreakRelated.v
	}
	return nil
}

// candidate copies the structural fields; enum and date validation is left to the normalizer.
func (r response) candidate(article models.RawArticle, relevant bool) models.Candidate {
	return models.Candidate{
		DiseaseName:     r.DiseaseName.Ptr(),
		PathogenType:    models.PathogenType(r.PathogenType.String()),
		LocationCountry: r.LocationCountry.Ptr(),
		LocationRegion:  r.LocationRegion.Ptr(),
		Coordinates:     coordinates(r.Coordinates),

		OutbreakDate:   r.OutbreakDate.String(),
		OutbreakStatus: models.OutbreakStatus(r.OutbreakStatus.String()),

		ReportedCases:    r.ReportedCases.v,
		ReportedDeaths:   r.ReportedDeaths.v,
		CaseFatalityRate: r.CaseFatalityRate.v,

		SeverityLevel:     models.SeverityLevel(r.SeverityLevel.String()),
		SeverityReasoning: r.SeverityReasoning.Ptr(),
		UrgencyScore:      r.UrgencyScore.v,
		TransmissionRisk:  models.TransmissionRisk(r.TransmissionRisk.String()),
		SpreadPotential:   models.SpreadPotential(r.SpreadPotential.String()),
		ResponseLevel:     models.ResponseLevel(r.ResponseLevel.String()),

		AgenciesInvolved:     nonNil(r.AgenciesInvolved),
		KeyInsights:          nonNil(r.KeyInsights),
		StakeholdersAffected: nonNil(r.StakeholdersAffected),
		Tags:                 nonNil(r.Tags),
		KeyNumbers:           r.KeyNumbers,

		IntelligenceSummary: r.IntelligenceSummary.Ptr(),
		ConfidenceScore:     *r.ConfidenceScore.v,
		DataReliability:     models.DataReliability(r.DataReliability.String()),

		SourceURL:          strings.TrimSpace(article.URL),
		SourceOrganization: strings.TrimSpace(article.SourceName),
		NewsTitle:          strings.TrimSpace(article.Title),
		PublishedAt:        strings.TrimSpace(article.PublishedAt),

		IsRelevant: relevant,
	}
}

func coordinates(raw json.RawMessage) *models.Coordinates {
	if len(raw) == 0 {
		return nil
	}
	var coords struct {
		Lat *flexFloat `json:"lat"`
		Lng *flexFloat `json:"lng"`
	}
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil
	}
	if coords.Lat == nil || coords.Lat.v == nil || coords.Lng == nil || coords.Lng.v == nil {
		return nil
	}
	return &models.Coordinates{Lat: *coords.Lat.v, Lng: *coords.Lng.v}
}

func nonNil(l models.StringList) models.StringList {
	if l == nil {
		return models.StringList{}
	}
	return l
}
