// Package threat summarizes a window of recent records into a global assessment.
package threat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/outbreak-radar/backend/internal/llm"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/processing"
)

const (
	DefaultWindow      = 10
	DefaultMaxTokens   = 1500
	DefaultTemperature = 0.1
	DefaultTimeout     = 60 * time.Second
)

// Options tune the window and the completion request.
type Options struct {
	Window      int
	MaxTokens   int
	// Temperature nil selects DefaultTemperature; zero is a valid setting.
	Temperature *float64
	Timeout     time.Duration
}

// Aggregator produces ThreatAssessments.
type Aggregator struct {
	completer llm.Completer
	opts      Options
	log       *slog.Logger
	now       func() time.Time
}

// New constructs an Aggregator. A nil completer is allowed; assessments of
// non-empty windows are then reported as unavailable.
func New(completer llm.Completer, opts Options, log *slog.Logger) *Aggregator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
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
	log = logger.OrDiscard(log)
	return &Aggregator{
		completer: completer,
		opts:      opts,
		log:       log.With("component", "threat"),
		now:       time.Now,
	}
}

// Window is the number of most recent records considered.
func (a *Aggregator) Window() int {
	return a.opts.Window
}

// AssessGlobal considers at most the last Window records of a chronological slice.
func (a *Aggregator) AssessGlobal(ctx context.Context, records []models.OutbreakRecord) models.ThreatAssessment {
	if len(records) > a.opts.Window {
		records = records[len(records)-a.opts.Window:]
	}

	if len(records) == 0 {
		return a.static()
	}
	if a.completer == nil {
		return a.unavailable(len(records), "no completion capability configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	text, err := a.completer.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      renderPrompt(records),
		MaxTokens:   a.opts.MaxTokens,
		Temperature: *a.opts.Temperature,
	})
	if err != nil {
		a.log.Warn("threat completion failed", slog.Int("records", len(records)), slog.Any("err", err))
		return a.unavailable(len(records), fmt.Sprintf("completion: %v", err))
	}

	var resp response
	if err := llm.DecodeJSON(text, &resp); err != nil {
		a.log.Warn("unparseable threat completion",
			slog.String("response", processing.Snippet(text, 300)),
			slog.Any("err", err))
		return a.unavailable(len(records), fmt.Sprintf("parse: %v", err))
	}
	if resp.GlobalThreatLevel.Ptr() == nil {
		a.log.Warn("threat completion missing globalThreatLevel")
		return a.unavailable(len(records), "missing globalThreatLevel")
	}

	return models.ThreatAssessment{
		ID:                 uuid.NewString(),
		GlobalThreatLevel:  models.ParseSeverityLevel(resp.GlobalThreatLevel.String()),
		ThreatReasoning:    resp.ThreatReasoning.String(),
		EmergingPatterns:   list(resp.EmergingPatterns),
		GeographicClusters: list(resp.GeographicClusters),
		Recommendations:    list(resp.Recommendations),
		WatchList:          list(resp.WatchList),
		Summary:            resp.Summary.String(),
		Source:             models.AssessmentModel,
		RecordCount:        len(records),
		GeneratedAt:        a.now().UTC(),
	}
}

type response struct {
	GlobalThreatLevel  llm.Text          `json:"globalThreatLevel"`
	ThreatReasoning    llm.Text          `json:"threatReasoning"`
	EmergingPatterns   models.StringList `json:"emergingPatterns"`
	GeographicClusters models.StringList `json:"geographicClusters"`
	Recommendations    models.StringList `json:"recommendations"`
	WatchList          models.StringList `json:"watchList"`
	Summary            llm.Text          `json:"summary"`
}

func (a *Aggregator) static() models.ThreatAssessment {
	return models.ThreatAssessment{
		ID:                 uuid.NewString(),
		GlobalThreatLevel:  models.SeverityLow,
		ThreatReasoning:    "No recent outbreak records to assess.",
		EmergingPatterns:   []string{},
		GeographicClusters: []string{},
		Recommendations:    []string{},
		WatchList:          []string{},
		Summary:            "No outbreak activity recorded in the current window.",
		Source:             models.AssessmentStatic,
		GeneratedAt:        a.now().UTC(),
	}
}

func (a *Aggregator) unavailable(count int, reason string) models.ThreatAssessment {
	return models.ThreatAssessment{
		ID:                 uuid.NewString(),
		GlobalThreatLevel:  models.SeverityUnknown,
		ThreatReasoning:    reason,
		EmergingPatterns:   []string{},
		GeographicClusters: []string{},
		Recommendations:    []string{},
		WatchList:          []string{},
		Summary:            "Threat assessment unavailable.",
		Source:             models.AssessmentUnavailable,
		RecordCount:        count,
		GeneratedAt:        a.now().UTC(),
	}
}

func list(in models.StringList) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
