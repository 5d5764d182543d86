// Package storage defines the record store contract shared by every backend.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/DeafMist/outbreak-radar/backend/internal/models"
)

// ErrDuplicate is returned by Insert when a record with the same source URL already exists.
var ErrDuplicate = errors.New("duplicate source url")

// Store is the storage capability the pipeline depends on.
type Store interface {
	// FindBySourceURL returns nil without error when no record exists.
	FindBySourceURL(ctx context.Context, url string) (*models.OutbreakRecord, error)
	// Insert writes the record only if its source URL is absent and returns its ID.
	Insert(ctx context.Context, rec models.OutbreakRecord) (string, error)
	// SelectRecent returns up to limit records, oldest first, ending at the newest.
	SelectRecent(ctx context.Context, limit int) ([]models.OutbreakRecord, error)
}

// Query narrows a record listing.
type Query struct {
	Text     string
	Disease  string
	Country  string
	Severity string
	Status   string
	Start    *time.Time
	End      *time.Time
	From     int
	Size     int
}

// Page bundles matching records and the total count.
type Page struct {
	Total int64
	Items []models.OutbreakRecord
}

// Bucket is one value of a grouped count.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Summary is the dashboard rollup over all stored records.
type Summary struct {
	Total             int64    `json:"total"`
	Active            int64    `json:"active"`
	CountriesAffected int64    `json:"countriesAffected"`
	BySeverity        []Bucket `json:"bySeverity"`
	ByDisease         []Bucket `json:"byDisease"`
}

// Backend is the full surface the services use: the pipeline store plus read and maintenance operations.
type Backend interface {
	Store
	Search(ctx context.Context, q Query) (*Page, error)
	Summary(ctx context.Context, topN int) (*Summary, error)
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	Ping(ctx context.Context) error
}
