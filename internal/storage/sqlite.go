package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/luciusandi/bumbootools/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tissue_prices (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	brand         TEXT NOT NULL,
	description   TEXT NOT NULL,
	site          TEXT NOT NULL,
	size          TEXT NOT NULL DEFAULT '',
	ply           TEXT NOT NULL DEFAULT '',
	price         REAL,
	total_reviews INTEGER,
	total_rating  REAL,
	source_url    TEXT NOT NULL DEFAULT '',
	metadata      TEXT NOT NULL DEFAULT '',
	collected_at  TIMESTAMP NOT NULL,
	collected_day TEXT NOT NULL,
	UNIQUE (site, brand, description, size, collected_day)
);
CREATE INDEX IF NOT EXISTS idx_tissue_prices_window
	ON tissue_prices (collected_at);
`

const sqliteUpsert = `
INSERT INTO tissue_prices (
	brand, description, site, size, ply, price, total_reviews,
	total_rating, source_url, metadata, collected_at, collected_day
) VALUES (
	:brand, :description, :site, :size, :ply, :price, :total_reviews,
	:total_rating, :source_url, :metadata, :collected_at, :collected_day
)
ON CONFLICT (site, brand, description, size, collected_day) DO UPDATE SET
	ply = excluded.ply,
	price = excluded.price,
	total_reviews = excluded.total_reviews,
	total_rating = excluded.total_rating,
	source_url = excluded.source_url,
	metadata = excluded.metadata,
	collected_at = excluded.collected_at
`

// SQLiteStore persists records in a local SQLite database. This is the
// default backend: no external service needed, queries still work.
type SQLiteStore struct {
	db     *sqlx.DB
	count  int
	logger *slog.Logger
}

type sqliteRow struct {
	Brand        string          `db:"brand"`
	Description  string          `db:"description"`
	Site         string          `db:"site"`
	Size         string          `db:"size"`
	Ply          string          `db:"ply"`
	Price        sql.NullFloat64 `db:"price"`
	TotalReviews sql.NullInt64   `db:"total_reviews"`
	TotalRating  sql.NullFloat64 `db:"total_rating"`
	SourceURL    string          `db:"source_url"`
	Metadata     string          `db:"metadata"`
	CollectedAt  time.Time       `db:"collected_at"`
	CollectedDay string          `db:"collected_day"`
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("create data dir: %w", err)}
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("open: %w", err)}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("migrate: %w", err)}
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "sqlite_store"),
	}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Upsert(ctx context.Context, records []types.ProductRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	for _, rec := range records {
		if _, err := tx.NamedExecContext(ctx, sqliteUpsert, toSQLiteRow(rec)); err != nil {
			return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("upsert: %w", err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("commit: %w", err)}
	}

	s.count += len(records)
	s.logger.Debug("records upserted", "count", len(records), "total", s.count)
	return nil
}

func (s *SQLiteStore) ReadWindow(ctx context.Context, q Query) ([]types.ProductRecord, error) {
	query := "SELECT brand, description, site, size, ply, price, total_reviews, " +
		"total_rating, source_url, metadata, collected_at, collected_day FROM tissue_prices"

	var clauses []string
	var args []any
	if len(q.Sites) > 0 {
		in, inArgs, err := sqlx.In("site IN (?)", q.Sites)
		if err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		clauses = append(clauses, in)
		args = append(args, inArgs...)
	}
	if len(q.Brands) > 0 {
		in, inArgs, err := sqlx.In("brand IN (?)", q.Brands)
		if err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		clauses = append(clauses, in)
		args = append(args, inArgs...)
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "collected_at >= ?")
		args = append(args, q.Since)
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "collected_at <= ?")
		args = append(args, q.Until)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY collected_at DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	var rows []sqliteRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("select: %w", err)}
	}

	records := make([]types.ProductRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("sqlite store closing", "total_records", s.count)
	return s.db.Close()
}

func toSQLiteRow(rec types.ProductRecord) sqliteRow {
	row := sqliteRow{
		Brand:        rec.Brand,
		Description:  rec.Description,
		Site:         rec.Site,
		Size:         rec.Size,
		Ply:          rec.Ply,
		SourceURL:    rec.SourceURL,
		Metadata:     rec.MetadataJSON(),
		CollectedAt:  rec.CollectedAt.UTC(),
		CollectedDay: collectedDay(rec.CollectedAt),
	}
	if rec.Price != nil {
		row.Price = sql.NullFloat64{Float64: *rec.Price, Valid: true}
	}
	if rec.TotalReviews != nil {
		row.TotalReviews = sql.NullInt64{Int64: int64(*rec.TotalReviews), Valid: true}
	}
	if rec.TotalRating != nil {
		row.TotalRating = sql.NullFloat64{Float64: *rec.TotalRating, Valid: true}
	}
	return row
}

func (r sqliteRow) toRecord() types.ProductRecord {
	rec := types.ProductRecord{
		Brand:       r.Brand,
		Description: r.Description,
		Site:        r.Site,
		Size:        r.Size,
		Ply:         r.Ply,
		SourceURL:   r.SourceURL,
		CollectedAt: r.CollectedAt,
	}
	if r.Price.Valid {
		rec.Price = types.Float64Ptr(r.Price.Float64)
	}
	if r.TotalReviews.Valid {
		rec.TotalReviews = types.IntPtr(int(r.TotalReviews.Int64))
	}
	if r.TotalRating.Valid {
		rec.TotalRating = types.Float64Ptr(r.TotalRating.Float64)
	}
	if r.Metadata != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(r.Metadata), &meta); err == nil {
			rec.Metadata = meta
		}
	}
	return rec
}
