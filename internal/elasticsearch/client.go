package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/processing"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
)

// Client wraps go-elasticsearch with the record store operations.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

var _ storage.Backend = (*Client)(nil)

// New instantiates the Elasticsearch client.
func New(addr, index string, log *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Client{es: es, index: index, log: logger.OrDiscard(log).With("component", "elasticsearch")}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index failed: %s", res.Status())
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// Another service may have created it first.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index failed: %s", strings.TrimSpace(string(body)))
	}

	c.log.Info("index created", slog.String("index", c.index))
	return nil
}

// FindBySourceURL looks the record up by its URL-derived document id.
func (c *Client) FindBySourceURL(ctx context.Context, url string) (*models.OutbreakRecord, error) {
	res, err := c.es.Get(c.index, processing.BuildRecordID(url), c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get record failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Found  bool                  `json:"found"`
		Source models.OutbreakRecord `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if !parsed.Found {
		return nil, nil
	}
	return &parsed.Source, nil
}

// Insert creates the document only when its id is free; a 409 maps to storage.ErrDuplicate.
func (c *Client) Insert(ctx context.Context, rec models.OutbreakRecord) (string, error) {
	if rec.SourceURL == "" {
		return "", errors.New("insert record: empty source url")
	}
	rec.ID = processing.BuildRecordID(rec.SourceURL)

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	req := esapi.CreateRequest{
		Index:      c.index,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return "", storage.ErrDuplicate
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("create record failed: %s", strings.TrimSpace(string(body)))
	}

	return rec.ID, nil
}

// SelectRecent returns the newest records in chronological order.
func (c *Client) SelectRecent(ctx context.Context, limit int) ([]models.OutbreakRecord, error) {
	if limit <= 0 {
		return []models.OutbreakRecord{}, nil
	}

	page, err := c.Search(ctx, storage.Query{Size: limit})
	if err != nil {
		return nil, err
	}

	items := page.Items
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

// Search executes a bool query with optional filters, newest first.
func (c *Client) Search(ctx context.Context, params storage.Query) (*storage.Page, error) {
	if params.Size <= 0 {
		params.Size = 20
	}
	if params.Size > 200 {
		params.Size = 200
	}
	if params.From < 0 {
		params.From = 0
	}

	must := make([]map[string]any, 0, 1)
	filters := make([]map[string]any, 0, 5)

	if params.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  params.Text,
				"fields": []string{"newsTitle^2", "intelligenceSummary", "keyInsights", "severityReasoning"},
			},
		})
	}

	terms := []struct{ field, value string }{
		{"diseaseName", params.Disease},
		{"locationCountry", params.Country},
		{"severityLevel", params.Severity},
		{"outbreakStatus", params.Status},
	}
	for _, t := range terms {
		if t.value == "" {
			continue
		}
		filters = append(filters, map[string]any{
			"term": map[string]any{t.field: t.value},
		})
	}

	if params.Start != nil || params.End != nil {
		rangeQuery := map[string]any{}
		if params.Start != nil {
			rangeQuery["gte"] = params.Start.UTC().Format(time.RFC3339)
		}
		if params.End != nil {
			rangeQuery["lte"] = params.End.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"createdAt": rangeQuery,
			},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	body := map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": boolQuery,
		},
		"sort": []map[string]any{
			{"createdAt": map[string]any{"order": "desc"}},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.OutbreakRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]models.OutbreakRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}

	return &storage.Page{
		Total: parsed.Hits.Total.Value,
		Items: items,
	}, nil
}

// Summary aggregates counts by severity and disease over the whole index.
func (c *Client) Summary(ctx context.Context, topN int) (*storage.Summary, error) {
	if topN <= 0 {
		topN = 10
	}

	body := map[string]any{
		"size":             0,
		"track_total_hits": true,
		"aggs": map[string]any{
			"active": map[string]any{
				"filter": map[string]any{
					"terms": map[string]any{
						"outbreakStatus": []string{
							string(models.StatusActive),
							string(models.StatusEmerging),
							string(models.StatusOngoing),
						},
					},
				},
			},
			"countries": map[string]any{
				"cardinality": map[string]any{"field": "locationCountry"},
			},
			"severity": map[string]any{
				"terms": map[string]any{"field": "severityLevel", "size": len(models.SeverityLevels)},
			},
			"disease": map[string]any{
				"terms": map[string]any{"field": "diseaseName", "size": topN},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal summary body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("summary failed: %s", strings.TrimSpace(string(data)))
	}

	type termsAgg struct {
		Buckets []struct {
			Key      string `json:"key"`
			DocCount int64  `json:"doc_count"`
		} `json:"buckets"`
	}
	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
		} `json:"hits"`
		Aggregations struct {
			Active struct {
				DocCount int64 `json:"doc_count"`
			} `json:"active"`
			Countries struct {
				Value int64 `json:"value"`
			} `json:"countries"`
			Severity termsAgg `json:"severity"`
			Disease  termsAgg `json:"disease"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode summary response: %w", err)
	}

	toBuckets := func(agg termsAgg) []storage.Bucket {
		out := make([]storage.Bucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			out = append(out, storage.Bucket{Key: b.Key, Count: b.DocCount})
		}
		return out
	}

	return &storage.Summary{
		Total:             parsed.Hits.Total.Value,
		Active:            parsed.Aggregations.Active.DocCount,
		CountriesAffected: parsed.Aggregations.Countries.Value,
		BySeverity:        toBuckets(parsed.Aggregations.Severity),
		ByDisease:         toBuckets(parsed.Aggregations.Disease),
	}, nil
}

// DeleteOlderThan removes records created before maxAge using batched delete-by-query.
// It loops until a batch returns fewer deleted documents than the requested batchSize.
func (c *Client) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339)
	totalDeleted := int64(0)

	for {
		body := map[string]any{
			"query": map[string]any{
				"range": map[string]any{
					"createdAt": map[string]any{
						"lte": cutoff,
					},
				},
			},
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return totalDeleted, fmt.Errorf("marshal delete body: %w", err)
		}

		res, err := c.es.DeleteByQuery(
			[]string{c.index},
			bytes.NewReader(payload),
			c.es.DeleteByQuery.WithContext(ctx),
			c.es.DeleteByQuery.WithWaitForCompletion(true),
			c.es.DeleteByQuery.WithConflicts("proceed"),
			c.es.DeleteByQuery.WithScrollSize(batchSize),
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("delete by query: %w", err)
		}

		if res.IsError() {
			data, _ := io.ReadAll(res.Body)
			res.Body.Close()
			return totalDeleted, fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
		}

		var parsed struct {
			Deleted int64 `json:"deleted"`
		}
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			res.Body.Close()
			return totalDeleted, fmt.Errorf("decode delete response: %w", err)
		}
		res.Body.Close()

		totalDeleted += parsed.Deleted

		if parsed.Deleted < int64(batchSize) {
			break
		}
	}

	return totalDeleted, nil
}
