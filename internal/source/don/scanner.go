// Package don reads the WHO Disease Outbreak News listing.
package don

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/processing"
	"github.com/DeafMist/outbreak-radar/backend/internal/source"
)

// Organization is the SourceName of every DON article.
const Organization = "WHO"

const itemPath = "/emergencies/disease-outbreak-news/item/"

// Scanner parses the listing page into articles.
type Scanner struct {
	listURL string
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time
}

var _ source.Source = (*Scanner)(nil)

// NewScanner wires an HTTP client; a nil client gets a 30s timeout.
func NewScanner(listURL string, client *http.Client, log *slog.Logger) *Scanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	log = logger.OrDiscard(log)
	return &Scanner{
		listURL: listURL,
		client:  client,
		log:     log.With("component", "don"),
		now:     time.Now,
	}
}

func (s *Scanner) Name() string { return "who-don" }

// Fetch returns listing entries published inside the lookback window.
// Entries without a parseable date are kept.
func (s *Scanner) Fetch(ctx context.Context, req source.Request) ([]models.RawArticle, error) {
	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(s.listURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	cutoff := s.now().Add(-req.Window())
	articles := make([]models.RawArticle, 0)

	doc.Find(fmt.Sprintf(`a[href*=%q]`, itemPath)).Each(func(_ int, link *goquery.Selection) {
		article, ok := parseEntry(link, base)
		if !ok {
			return
		}
		if ts := processing.ParseTimestamp(article.PublishedAt); !ts.IsZero() && ts.Before(cutoff) {
			return
		}
		articles = append(articles, article)
	})

	articles = source.Unique(articles)
	if req.Max > 0 && len(articles) > req.Max {
		articles = articles[:req.Max]
	}

	s.log.Info("listing parsed", slog.Int("articles", len(articles)))
	return articles, nil
}

func (s *Scanner) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "OutbreakRadar/1.0 (public health research)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("who listing returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// parseEntry reads one listing link. Titles follow "Disease - Country".
func parseEntry(link *goquery.Selection, base *url.URL) (models.RawArticle, bool) {
	href, ok := link.Attr("href")
	if !ok {
		return models.RawArticle{}, false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return models.RawArticle{}, false
	}

	title := text(link.Find(".full-title"))
	if title == "" {
		title = text(link.Find(".trimmed"))
	}
	if title == "" {
		title = text(link)
	}
	if title == "" {
		return models.RawArticle{}, false
	}

	published := ""
	if ts := processing.ParseTimestamp(text(link.Find(".timestamp"))); !ts.IsZero() {
		published = ts.UTC().Format(time.RFC3339)
	}

	return models.RawArticle{
		Title:       title,
		Description: describe(title),
		URL:         base.ResolveReference(ref).String(),
		PublishedAt: published,
		SourceName:  Organization,
	}, true
}

func describe(title string) string {
	disease, place, found := strings.Cut(title, " - ")
	if !found {
		return fmt.Sprintf("WHO Disease Outbreak News: %s.", title)
	}
	return fmt.Sprintf("WHO Disease Outbreak News reports a %s outbreak in %s.",
		strings.TrimSpace(disease), strings.TrimSpace(place))
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.First().Text()), " ")
}
