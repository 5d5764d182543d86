// Package pipeline drives articles through extraction, normalization and admission.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/outbreak-radar/backend/internal/admission"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/normalizer"
)

// DefaultWorkers bounds Run when no worker count is configured.
const DefaultWorkers = 4

// Extractor produces a heuristic candidate.
type Extractor interface {
	Extract(article models.RawArticle) models.Candidate
}

// Analyzer produces an AI-assisted extraction.
type Analyzer interface {
	Analyze(ctx context.Context, article models.RawArticle) models.Extraction
}

// Admitter persists records exactly once per source URL.
type Admitter interface {
	Admit(ctx context.Context, rec models.OutbreakRecord) (admission.Admission, error)
}

// Publisher announces inserted records.
type Publisher interface {
	PublishRecord(ctx context.Context, rec models.OutbreakRecord) error
}

// Outcome classifies what happened to one article.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeInserted
	OutcomeDuplicate
	OutcomeDiscarded
	OutcomeGated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeGated:
		return "gated"
	default:
		return "failed"
	}
}

// Result is the per-article outcome. Record is set once normalization succeeded.
type Result struct {
	URL     string
	Outcome Outcome
	Record  *models.OutbreakRecord
	Err     error
}

// Stats tallies one Run.
type Stats struct {
	RunID     string
	Total     int
	Inserted  int
	Duplicate int
	Discarded int
	Gated     int
	Failed    int
	Elapsed   time.Duration
}

func (s *Stats) add(r Result) {
	s.Total++
	switch r.Outcome {
	case OutcomeInserted:
		s.Inserted++
	case OutcomeDuplicate:
		s.Duplicate++
	case OutcomeDiscarded:
		s.Discarded++
	case OutcomeGated:
		s.Gated++
	default:
		s.Failed++
	}
}

// Deps are the collaborators of a Pipeline. Heuristic, Analyzer and Publisher may be nil.
type Deps struct {
	Heuristic  Extractor
	Analyzer   Analyzer
	Normalizer *normalizer.Normalizer
	Gate       admission.Gate
	Admitter   Admitter
	Publisher  Publisher
	Workers    int
}

// Pipeline is safe for concurrent use when its collaborators are.
type Pipeline struct {
	deps Deps
	log  *slog.Logger
}

// New constructs a Pipeline.
func New(deps Deps, log *slog.Logger) *Pipeline {
	log = logger.OrDiscard(log)
	if deps.Workers <= 0 {
		deps.Workers = DefaultWorkers
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalizer.New(log)
	}
	if deps.Gate.MinConfidence <= 0 {
		deps.Gate = admission.NewGate(0)
	}
	return &Pipeline{deps: deps, log: log.With("component", "pipeline")}
}

// Process handles one article. It never panics on bad input; failures are reported in the Result.
func (p *Pipeline) Process(ctx context.Context, article models.RawArticle) Result {
	url := strings.TrimSpace(article.URL)
	res := Result{URL: url}

	if url == "" {
		p.log.Debug("article discarded", slog.String("reason", normalizer.ErrNoSourceURL.Error()))
		res.Outcome = OutcomeDiscarded
		return res
	}

	in := normalizer.Inputs{AI: models.Failed("analyzer disabled")}
	if p.deps.Heuristic != nil {
		h := p.deps.Heuristic.Extract(article)
		in.Heuristic = &h
	}
	if p.deps.Analyzer != nil {
		in.AI = p.deps.Analyzer.Analyze(ctx, article)
	}

	rec, err := p.deps.Normalizer.Normalize(in)
	if errors.Is(err, normalizer.ErrRejected) {
		p.log.Debug("article discarded", slog.String("url", url), slog.String("reason", err.Error()))
		res.Outcome = OutcomeDiscarded
		return res
	}
	if err != nil {
		p.log.Warn("normalize failed", slog.String("url", url), slog.Any("err", err))
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	res.Record = &rec

	if !p.deps.Gate.Accept(rec) {
		p.log.Debug("record gated",
			slog.String("url", url),
			slog.Float64("confidence", rec.ConfidenceScore))
		res.Outcome = OutcomeGated
		return res
	}

	adm, err := p.deps.Admitter.Admit(ctx, rec)
	if err != nil {
		p.log.Warn("admit failed", slog.String("url", url), slog.Any("err", err))
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if adm == admission.SkippedDuplicate {
		res.Outcome = OutcomeDuplicate
		return res
	}

	res.Outcome = OutcomeInserted
	p.log.Info("record inserted",
		slog.String("url", url),
		slog.String("disease", rec.DiseaseName),
		slog.String("country", rec.LocationCountry),
		slog.String("method", rec.ExtractionMethod))

	if p.deps.Publisher != nil {
		if err := p.deps.Publisher.PublishRecord(ctx, rec); err != nil {
			p.log.Warn("publish record failed", slog.String("url", url), slog.Any("err", err))
		}
	}
	return res
}

// Run processes a batch with bounded concurrency. Per-article failures never stop the batch.
// Results are returned in input order.
func (p *Pipeline) Run(ctx context.Context, articles []models.RawArticle) (Stats, []Result) {
	started := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	results := make([]Result, len(articles))

	var g errgroup.Group
	g.SetLimit(p.deps.Workers)

	for i, article := range articles {
		i, article := i, article
		g.Go(func() error {
			results[i] = p.Process(ctx, article)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		stats.add(r)
	}
	stats.Elapsed = time.Since(started)

	p.log.Info("batch processed",
		slog.String("run_id", stats.RunID),
		slog.Int("total", stats.Total),
		slog.Int("inserted", stats.Inserted),
		slog.Int("duplicate", stats.Duplicate),
		slog.Int("discarded", stats.Discarded),
		slog.Int("gated", stats.Gated),
		slog.Int("failed", stats.Failed),
		slog.Duration("elapsed", stats.Elapsed))

	return stats, results
}
