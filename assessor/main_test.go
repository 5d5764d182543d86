package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/llm"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/threat"
)

type stubStore struct {
	records []models.OutbreakRecord
	err     error
	limit   int
}

func (s *stubStore) FindBySourceURL(context.Context, string) (*models.OutbreakRecord, error) {
	return nil, nil
}

func (s *stubStore) Insert(context.Context, models.OutbreakRecord) (string, error) {
	return "", errors.New("read only")
}

func (s *stubStore) SelectRecent(_ context.Context, limit int) ([]models.OutbreakRecord, error) {
	s.limit = limit
	return s.records, s.err
}

type stubCompleter struct {
	reply string
	calls int
}

func (c *stubCompleter) Complete(context.Context, llm.Request) (string, error) {
	c.calls++
	return c.reply, nil
}

type stubPublisher struct {
	published []models.ThreatAssessment
}

func (p *stubPublisher) PublishThreat(_ context.Context, a models.ThreatAssessment) error {
	p.published = append(p.published, a)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAssessPublishesModelAssessment(t *testing.T) {
	store := &stubStore{records: []models.OutbreakRecord{
		{DiseaseName: "Cholera", LocationCountry: "Sudan", SeverityLevel: models.SeverityHigh},
	}}
	completer := &stubCompleter{reply: `{"globalThreatLevel":"moderate","summary":"watch Sudan"}`}
	pub := &stubPublisher{}
	agg := threat.New(completer, threat.Options{Window: 7}, nil)

	a, err := assess(context.Background(), discard(), store, agg, pub)
	require.NoError(t, err)
	require.Equal(t, 7, store.limit)
	require.Equal(t, models.SeverityModerate, a.GlobalThreatLevel)
	require.Len(t, pub.published, 1)
	require.Equal(t, a.ID, pub.published[0].ID)
}

func TestAssessEmptyStoreIsStatic(t *testing.T) {
	completer := &stubCompleter{}
	agg := threat.New(completer, threat.Options{}, nil)

	a, err := assess(context.Background(), discard(), &stubStore{}, agg, nil)
	require.NoError(t, err)
	require.Equal(t, models.AssessmentStatic, a.Source)
	require.Zero(t, completer.calls)
}

func TestAssessStoreError(t *testing.T) {
	agg := threat.New(&stubCompleter{}, threat.Options{}, nil)

	_, err := assess(context.Background(), discard(), &stubStore{err: errors.New("index missing")}, agg, nil)
	require.ErrorContains(t, err, "index missing")
}
