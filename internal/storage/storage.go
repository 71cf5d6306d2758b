// Package storage persists product records and serves them back to the
// reporting API. Backends share the Store interface; the Router decides
// where matched and unmatched records land after normalization.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/luciusandi/bumbootools/internal/config"
	"github.com/luciusandi/bumbootools/internal/types"
)

// Store is the interface for all persistence backends.
type Store interface {
	// Upsert writes a batch of records, replacing an existing row when
	// the same product was already collected on the same day.
	Upsert(ctx context.Context, records []types.ProductRecord) error

	// ReadWindow returns records matching the query, newest first.
	ReadWindow(ctx context.Context, q Query) ([]types.ProductRecord, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// Query filters a ReadWindow call. Zero-valued fields are ignored.
type Query struct {
	Sites  []string
	Brands []string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// collectedDay is the upsert granularity: one row per product per site
// per UTC day.
func collectedDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// New creates the configured storage backend.
func New(cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case "mongo":
		return NewMongoStore(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.Storage.SQLitePath, logger)
	case "json":
		return NewJSONStore(cfg.Storage.DumpDir, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
