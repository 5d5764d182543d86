// Package events announces admitted records and threat assessments on NATS subjects.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

// Event kinds.
const (
	KindRecord = "outbreak.record"
	KindThreat = "outbreak.threat"
)

// Event is the envelope written to every subject.
type Event struct {
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends events to one subject.
type Publisher struct {
	conn    conn
	subject string
	now     func() time.Time
}

// Connect dials NATS with unlimited reconnects.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// NewPublisher binds a connection to a subject.
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	return newPublisher(nc, subject)
}

func newPublisher(c conn, subject string) *Publisher {
	return &Publisher{conn: c, subject: subject, now: time.Now}
}

// PublishRecord announces an admitted record.
func (p *Publisher) PublishRecord(ctx context.Context, rec models.OutbreakRecord) error {
	return p.publish(ctx, KindRecord, rec)
}

// PublishThreat announces a fresh threat assessment.
func (p *Publisher) PublishThreat(ctx context.Context, a models.ThreatAssessment) error {
	return p.publish(ctx, KindThreat, a)
}

func (p *Publisher) publish(ctx context.Context, kind string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	data, err := json.Marshal(Event{Kind: kind, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s to %s: %w", kind, p.subject, err)
	}
	return nil
}
