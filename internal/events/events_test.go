package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestPublishRecordEnvelope(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "outbreaks.records")
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.PublishRecord(context.Background(), models.OutbreakRecord{
		ID:          "abc",
		SourceURL:   "https://example.org/a",
		DiseaseName: "Cholera",
	})
	require.NoError(t, err)
	require.Equal(t, "outbreaks.records", fc.subject)

	var evt Event
	require.NoError(t, json.Unmarshal(fc.data, &evt))
	require.Equal(t, KindRecord, evt.Kind)
	require.True(t, fixed.Equal(evt.OccurredAt))

	var rec models.OutbreakRecord
	require.NoError(t, json.Unmarshal(evt.Payload, &rec))
	require.Equal(t, "https://example.org/a", rec.SourceURL)
	require.Equal(t, "Cholera", rec.DiseaseName)
}

func TestPublishThreat(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "outbreaks.threats")

	require.NoError(t, p.PublishThreat(context.Background(), models.ThreatAssessment{
		GlobalThreatLevel: models.SeverityHigh,
		Source:            models.AssessmentModel,
	}))

	var evt Event
	require.NoError(t, json.Unmarshal(fc.data, &evt))
	require.Equal(t, KindThreat, evt.Kind)
	require.Contains(t, string(evt.Payload), `"globalThreatLevel":"high"`)
}

func TestPublishErrors(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	p := newPublisher(fc, "outbreaks.records")

	err := p.PublishRecord(context.Background(), models.OutbreakRecord{})
	require.ErrorContains(t, err, "outbreaks.records")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fc.err = nil
	fc.data = nil
	require.ErrorIs(t, p.PublishRecord(ctx, models.OutbreakRecord{}), context.Canceled)
	require.Nil(t, fc.data)
}
