package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/outbreak-radar/backend/internal/source"
)

type fakeNewsAPI struct {
	mu      sync.Mutex
	queries []string
	froms   []string
	keys    []string
}

func (f *fakeNewsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.keys = append(f.keys, r.Header.Get("X-Api-Key"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/top-headlines":
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"CNN"},"title":"Measles outbreak grows in Texas","url":"https://news/1","publishedAt":"2025-03-14T09:00:00Z"},
			{"source":{"name":"CNN"},"title":null,"description":null,"url":"https://news/empty"},
			{"source":{"name":"CNN"},"title":"Election results","url":"https://news/politics"}
		]}`))
	case "/everything":
		q := r.URL.Query()
		f.mu.Lock()
		f.queries = append(f.queries, q.Get("q"))
		f.froms = append(f.froms, q.Get("from"))
		f.mu.Unlock()
		if q.Get("q") == "broken" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"BBC"},"title":"Duplicate of headline","description":"disease","url":"https://news/1"},
			{"source":{"name":"BBC"},"title":"Cholera epidemic in Sudan","url":"https://news/2"},
			{"source":{"name":"BBC"},"description":"New virus cluster","url":""}
		]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestFetchMergesAndFilters(t *testing.T) {
	fake := &fakeNewsAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "key-123", srv.Client(), nil)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC) }

	articles, err := c.Fetch(context.Background(), source.Request{
		Keywords: []string{"cholera OR dengue", "broken"},
		Lookback: 90 * 24 * time.Hour,
		Max:      10,
	})
	require.NoError(t, err)

	require.Len(t, articles, 2)
	require.Equal(t, "https://news/1", articles[0].URL)
	require.Equal(t, "Measles outbreak grows in Texas", articles[0].Title)
	require.Equal(t, "CNN", articles[0].SourceName)
	require.Equal(t, "https://news/2", articles[1].URL)

	require.ElementsMatch(t, []string{"cholera OR dengue", "broken"}, fake.queries)
	for _, from := range fake.froms {
		require.Equal(t, "2025-02-18", from)
	}
	for _, key := range fake.keys {
		require.Equal(t, "key-123", key)
	}
}

func TestFetchRespectsMax(t *testing.T) {
	srv := httptest.NewServer(&fakeNewsAPI{})
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "key", srv.Client(), nil)
	require.NoError(t, err)

	articles, err := c.Fetch(context.Background(), source.Request{Keywords: []string{"cholera"}, Max: 1})
	require.NoError(t, err)
	require.Len(t, articles, 1)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("https://newsapi.org/v2", " ", nil, nil)
	require.ErrorIs(t, err, ErrMissingKey)
}
