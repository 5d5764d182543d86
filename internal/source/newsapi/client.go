// Package newsapi fetches health articles from newsapi.org.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/source"
)

const (
	maxPageSize   = 100
	searchWorkers = 2
)

// ErrMissingKey is a configuration error.
var ErrMissingKey = errors.New("newsapi: api key is required")

// Client queries the top-headlines and everything endpoints.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      *slog.Logger
	now      func() time.Time
}

var _ source.Source = (*Client)(nil)

// New validates the key up front.
func New(endpoint, apiKey string, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingKey
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log = logger.OrDiscard(log)
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     httpClient,
		log:      log.With("component", "newsapi"),
		now:      time.Now,
	}, nil
}

func (c *Client) Name() string { return "newsapi" }

// Fetch merges health headlines with one search per keyword group.
// A failing request is logged and skipped; the remaining results are still returned.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]models.RawArticle, error) {
	limit := req.Max
	if limit <= 0 {
		limit = 50
	}

	var all []models.RawArticle

	headlines, err := c.headlines(ctx, pageSize(limit/2))
	if err != nil {
		c.log.Warn("fetch headlines failed", slog.Any("err", err))
	}
	all = append(all, headlines...)

	if len(req.Keywords) > 0 {
		groups := make([][]models.RawArticle, len(req.Keywords))
		size := pageSize(limit / len(req.Keywords))
		from := c.now().Add(-req.Window()).UTC()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(searchWorkers)
		for i, q := range req.Keywords {
			i, q := i, q
			g.Go(func() error {
				articles, err := c.search(gctx, q, from, size)
				if err != nil {
					c.log.Warn("search failed", slog.String("query", q), slog.Any("err", err))
					return nil
				}
				groups[i] = articles
				return nil
			})
		}
		_ = g.Wait()

		for _, articles := range groups {
			all = append(all, articles...)
		}
	}

	out := make([]models.RawArticle, 0, len(all))
	for _, a := range source.Unique(all) {
		if !source.Usable(a) || !source.HealthRelated(a) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}

	c.log.Info("articles fetched", slog.Int("raw", len(all)), slog.Int("kept", len(out)))
	if len(out) == 0 && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return out, nil
}

func (c *Client) headlines(ctx context.Context, size int) ([]models.RawArticle, error) {
	params := url.Values{}
	params.Set("category", "health")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(size))
	return c.get(ctx, "/top-headlines", params)
}

func (c *Client) search(ctx context.Context, query string, from time.Time, size int) ([]models.RawArticle, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(size))
	return c.get(ctx, "/everything", params)
}

type response struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	URL         *string `json:"url"`
	PublishedAt *string `json:"publishedAt"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]models.RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s returned %s: %s %s", path, resp.Status, body.Code, body.Message)
	}

	out := make([]models.RawArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		out = append(out, models.RawArticle{
			Title:       deref(a.Title),
			Description: deref(a.Description),
			Content:     deref(a.Content),
			URL:         deref(a.URL),
			PublishedAt: deref(a.PublishedAt),
			SourceName:  strings.TrimSpace(a.Source.Name),
		})
	}
	return out, nil
}

func pageSize(n int) int {
	switch {
	case n < 1:
		return 1
	case n > maxPageSize:
		return maxPageSize
	default:
		return n
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
