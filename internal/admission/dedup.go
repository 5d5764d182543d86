package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
)

// Admission is the outcome of a successful Admit call.
type Admission int

const (
	Inserted Admission = iota + 1
	SkippedDuplicate
)

func (a Admission) String() string {
	switch a {
	case Inserted:
		return "inserted"
	case SkippedDuplicate:
		return "skipped_duplicate"
	default:
		return "unknown"
	}
}

// Ledger remembers source URLs the store has already confirmed. Keys are
// marked only after storage reports them present, so a miss always defers to the store.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Deduplicator inserts records whose source URL is not stored yet.
type Deduplicator struct {
	store  storage.Store
	ledger Ledger
	log    *slog.Logger
}

// NewDeduplicator constructs a Deduplicator. ledger may be nil.
func NewDeduplicator(store storage.Store, ledger Ledger, log *slog.Logger) *Deduplicator {
	return &Deduplicator{
		store:  store,
		ledger: ledger,
		log:    logger.OrDiscard(log).With("component", "deduplicator"),
	}
}

// Admit never updates an existing record. A duplicate is a no-op, not an error.
func (d *Deduplicator) Admit(ctx context.Context, rec models.OutbreakRecord) (Admission, error) {
	key := rec.SourceURL
	if key == "" {
		return 0, fmt.Errorf("admit record: empty source url")
	}

	if d.ledger != nil {
		seen, err := d.ledger.Seen(ctx, key)
		if err != nil {
			// The store's conditional insert still guards uniqueness.
			d.log.Warn("ledger lookup failed", slog.String("url", key), slog.Any("err", err))
		} else if seen {
			return SkippedDuplicate, nil
		}
	}

	admission, err := d.admit(ctx, rec)
	if err != nil {
		return 0, err
	}

	if d.ledger != nil {
		if merr := d.ledger.Mark(ctx, key); merr != nil {
			d.log.Warn("ledger mark failed", slog.String("url", key), slog.Any("err", merr))
		}
	}
	return admission, nil
}

func (d *Deduplicator) admit(ctx context.Context, rec models.OutbreakRecord) (Admission, error) {
	existing, err := d.store.FindBySourceURL(ctx, rec.SourceURL)
	if err != nil {
		return 0, fmt.Errorf("find by source url: %w", err)
	}
	if existing != nil {
		return SkippedDuplicate, nil
	}

	id, err := d.store.Insert(ctx, rec)
	if errors.Is(err, storage.ErrDuplicate) {
		return SkippedDuplicate, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	d.log.Debug("record inserted", slog.String("id", id), slog.String("url", rec.SourceURL))
	return Inserted, nil
}
