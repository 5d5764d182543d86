package admission_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/admission"
	"github.com/DeafMist/outbreak-radar/backend/internal/dedupe"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]models.OutbreakRecord
	inserts int
	findErr error
	insErr  error
	// hideOnFind simulates a concurrent writer that inserted between find and insert.
	hideOnFind bool
}

func newMemStore() *memStore {
	return &memStore{records: map[string]models.OutbreakRecord{}}
}

func (m *memStore) FindBySourceURL(ctx context.Context, url string) (*models.OutbreakRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if rec, ok := m.records[url]; ok && !m.hideOnFind {
		return &rec, nil
	}
	return nil, nil
}

func (m *memStore) Insert(ctx context.Context, rec models.OutbreakRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insErr != nil {
		return "", m.insErr
	}
	if _, ok := m.records[rec.SourceURL]; ok {
		return "", storage.ErrDuplicate
	}
	m.records[rec.SourceURL] = rec
	m.inserts++
	return rec.ID, nil
}

func (m *memStore) SelectRecent(ctx context.Context, limit int) ([]models.OutbreakRecord, error) {
	return nil, nil
}

type stubLedger struct {
	mu      sync.Mutex
	marked  map[string]bool
	seenErr error
}

func (l *stubLedger) Seen(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seenErr != nil {
		return false, l.seenErr
	}
	return l.marked[key], nil
}

func (l *stubLedger) Mark(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.marked == nil {
		l.marked = map[string]bool{}
	}
	l.marked[key] = true
	return nil
}

func record(url string) models.OutbreakRecord {
	return models.OutbreakRecord{
		ID:              url,
		SourceURL:       url,
		DiseaseName:     "Cholera",
		ConfidenceScore: 0.8,
		SeverityLevel:   models.SeverityHigh,
	}
}

func TestGateAccept(t *testing.T) {
	g := admission.NewGate(0)
	require.InDelta(t, admission.DefaultMinConfidence, g.MinConfidence, 1e-9)

	cases := 3
	tests := []struct {
		name string
		rec  models.OutbreakRecord
		want bool
	}{
		{name: "no signal", rec: models.OutbreakRecord{ConfidenceScore: 0.1, SeverityLevel: models.SeverityUnknown}, want: false},
		{name: "confident", rec: models.OutbreakRecord{ConfidenceScore: 0.3, SeverityLevel: models.SeverityUnknown}, want: true},
		{name: "numbers", rec: models.OutbreakRecord{ConfidenceScore: 0.1, SeverityLevel: models.SeverityUnknown, ReportedCases: &cases}, want: true},
		{name: "severity known", rec: models.OutbreakRecord{ConfidenceScore: 0.1, SeverityLevel: models.SeverityLow}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, g.Accept(tt.rec))
		})
	}
}

func TestAdmitIsIdempotent(t *testing.T) {
	store := newMemStore()
	d := admission.NewDeduplicator(store, nil, nil)
	rec := record("https://example.org/a")

	first, err := d.Admit(context.Background(), rec)
	require.NoError(t, err)
	second, err := d.Admit(context.Background(), rec)
	require.NoError(t, err)

	require.Equal(t, admission.Inserted, first)
	require.Equal(t, admission.SkippedDuplicate, second)
	require.Len(t, store.records, 1)
	require.Equal(t, 1, store.inserts)
}

func TestAdmitConditionalInsertConflict(t *testing.T) {
	store := newMemStore()
	rec := record("https://example.org/a")
	store.records[rec.SourceURL] = rec
	store.hideOnFind = true

	got, err := admission.NewDeduplicator(store, nil, nil).Admit(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, admission.SkippedDuplicate, got)
	require.Equal(t, 0, store.inserts)
}

func TestAdmitSeenKeySkipsStore(t *testing.T) {
	store := newMemStore()
	store.findErr = errors.New("must not be called")
	ledger := &stubLedger{marked: map[string]bool{"https://example.org/a": true}}

	got, err := admission.NewDeduplicator(store, ledger, nil).Admit(context.Background(), record("https://example.org/a"))
	require.NoError(t, err)
	require.Equal(t, admission.SkippedDuplicate, got)
}

func TestAdmitLedgerErrorFallsBackToStore(t *testing.T) {
	store := newMemStore()
	ledger := &stubLedger{seenErr: errors.New("redis down")}

	got, err := admission.NewDeduplicator(store, ledger, nil).Admit(context.Background(), record("https://example.org/a"))
	require.NoError(t, err)
	require.Equal(t, admission.Inserted, got)
}

func TestAdmitMarksOnlyConfirmedKeys(t *testing.T) {
	store := newMemStore()
	store.insErr = errors.New("connection reset")
	ledger := &stubLedger{}
	d := admission.NewDeduplicator(store, ledger, nil)

	_, err := d.Admit(context.Background(), record("https://example.org/a"))
	require.ErrorContains(t, err, "connection reset")
	require.False(t, ledger.marked["https://example.org/a"])

	store.insErr = nil
	got, err := d.Admit(context.Background(), record("https://example.org/a"))
	require.NoError(t, err)
	require.Equal(t, admission.Inserted, got)
	require.True(t, ledger.marked["https://example.org/a"])

	// A duplicate found in storage is remembered too.
	other := record("https://example.org/b")
	store.records[other.SourceURL] = other
	got, err = d.Admit(context.Background(), other)
	require.NoError(t, err)
	require.Equal(t, admission.SkippedDuplicate, got)
	require.True(t, ledger.marked[other.SourceURL])
}

func TestAdmitAfterInterruptedAttemptStores(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	ledger := dedupe.NewRedisLedgerWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	t.Cleanup(func() { _ = ledger.Close() })
	rec := record("https://example.org/redelivered")

	// First delivery fails before anything reaches storage.
	failing := newMemStore()
	failing.insErr = errors.New("worker shutting down")
	_, err := admission.NewDeduplicator(failing, ledger, nil).Admit(ctx, rec)
	require.Error(t, err)

	// Redelivery on another worker with an empty store must still insert.
	store := newMemStore()
	got, err := admission.NewDeduplicator(store, ledger, nil).Admit(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, admission.Inserted, got)
	require.Len(t, store.records, 1)
}

func TestAdmitFindError(t *testing.T) {
	store := newMemStore()
	store.findErr = errors.New("timeout")

	_, err := admission.NewDeduplicator(store, nil, nil).Admit(context.Background(), record("https://example.org/a"))
	require.ErrorContains(t, err, "find by source url")
}

func TestAdmitConcurrentSameURL(t *testing.T) {
	store := newMemStore()
	d := admission.NewDeduplicator(store, &stubLedger{}, nil)
	rec := record("https://example.org/same")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := d.Admit(context.Background(), rec)
			require.NoError(t, err)
			if got == admission.Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, inserted)
	require.Len(t, store.records, 1)
}

func TestAdmitRejectsEmptyURL(t *testing.T) {
	_, err := admission.NewDeduplicator(newMemStore(), nil, nil).Admit(context.Background(), models.OutbreakRecord{})
	require.Error(t, err)
}
