package source_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/source"
)

func TestUniqueKeepsFirstOccurrence(t *testing.T) {
	in := []models.RawArticle{
		{URL: "https://a", Title: "first"},
		{URL: "https://b", Title: "b"},
		{URL: " https://a ", Title: "second"},
	}

	out := source.Unique(in)
	require.Len(t, out, 2)
	require.Equal(t, "first", out[0].Title)
	require.Equal(t, "b", out[1].Title)
}

func TestUsable(t *testing.T) {
	require.True(t, source.Usable(models.RawArticle{URL: "https://a", Description: "d"}))
	require.False(t, source.Usable(models.RawArticle{URL: "https://a"}))
	require.False(t, source.Usable(models.RawArticle{Title: "no url"}))
}

func TestHealthRelated(t *testing.T) {
	require.True(t, source.HealthRelated(models.RawArticle{Title: "Hospital admissions rise"}))
	require.False(t, source.HealthRelated(models.RawArticle{Title: "Election results announced"}))
}

func TestRequestWindowIsClamped(t *testing.T) {
	require.Equal(t, source.MaxLookback, source.Request{Lookback: 90 * 24 * time.Hour}.Window())
	require.Equal(t, source.MaxLookback, source.Request{}.Window())
	require.Equal(t, 72*time.Hour, source.Request{Lookback: 72 * time.Hour}.Window())
}
