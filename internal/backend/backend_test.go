package backend

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/config"
)

func TestOpenRejectsUnknownBackend(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, closeFn, err := Open(context.Background(), config.Common{StorageBackend: "mongo"}, log)
	require.ErrorContains(t, err, "mongo")
	require.Nil(t, store)
	require.NotNil(t, closeFn)
	require.NoError(t, closeFn())
}

func TestOpenWithRetryGivesUp(t *testing.T) {
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = 2 * time.Second })

	_, closeFn, err := OpenWithRetry(context.Background(), config.Common{StorageBackend: "mongo"}, nil, 3)
	require.ErrorContains(t, err, "after 3 attempts")
	require.NoError(t, closeFn())
}

func TestOpenWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := OpenWithRetry(ctx, config.Common{StorageBackend: "mongo"}, nil, 5)
	require.ErrorIs(t, err, context.Canceled)
}
