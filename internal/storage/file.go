package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/luciusandi/bumbootools/internal/types"
)

// JSONDump writes timestamped batch files under a base directory,
// data/raw/scrape_20260831T120000Z_0001.json style. It backs the review
// queue for unmatched records and serves as a fallback when the
// primary store is down.
type JSONDump struct {
	baseDir string
	mu      sync.Mutex
	seq     int
	logger  *slog.Logger
}

func NewJSONDump(baseDir string, logger *slog.Logger) (*JSONDump, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create dump dir: %w", err)}
	}
	return &JSONDump{
		baseDir: baseDir,
		logger:  logger.With("component", "json_dump"),
	}, nil
}

// Dump writes records to {prefix}_{timestamp}_{seq}.json and returns the
// path. The sequence number keeps two dumps within the same second from
// overwriting each other.
func (d *JSONDump) Dump(records []types.ProductRecord, prefix string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stamp := time.Now().UTC().Format("20060102T150405Z")
	d.seq++
	path := filepath.Join(d.baseDir, fmt.Sprintf("%s_%s_%04d.json", prefix, stamp, d.seq))

	f, err := os.Create(path)
	if err != nil {
		return "", &types.StorageError{Backend: "json", Err: fmt.Errorf("create dump file: %w", err)}
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return "", &types.StorageError{Backend: "json", Err: fmt.Errorf("encode dump: %w", err)}
	}

	d.logger.Info("batch dumped", "path", path, "records", len(records))
	return path, nil
}

// JSONStore is a Store backed entirely by dump files. Upserts append a
// new batch file; reads walk every scrape_*.json in the directory. Fine
// for small installs and tests, not for heavy query traffic.
type JSONStore struct {
	dump   *JSONDump
	logger *slog.Logger
}

func NewJSONStore(baseDir string, logger *slog.Logger) (*JSONStore, error) {
	dump, err := NewJSONDump(baseDir, logger)
	if err != nil {
		return nil, err
	}
	return &JSONStore{
		dump:   dump,
		logger: logger.With("component", "json_store"),
	}, nil
}

func (s *JSONStore) Name() string { return "json" }

func (s *JSONStore) Upsert(_ context.Context, records []types.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := s.dump.Dump(records, "scrape")
	return err
}

func (s *JSONStore) ReadWindow(_ context.Context, q Query) ([]types.ProductRecord, error) {
	entries, err := os.ReadDir(s.dump.baseDir)
	if err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("read dump dir: %w", err)}
	}

	var records []types.ProductRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "scrape_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		batch, err := ReadDump(filepath.Join(s.dump.baseDir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable dump", "file", name, "error", err)
			continue
		}
		for _, rec := range batch {
			if matchesQuery(rec, q) {
				records = append(records, rec)
			}
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CollectedAt.After(records[j].CollectedAt)
	})
	if q.Limit > 0 && len(records) > q.Limit {
		records = records[:q.Limit]
	}
	return records, nil
}

func (s *JSONStore) Close() error { return nil }

// ReadDump loads a dump file written by JSONDump.
func ReadDump(path string) ([]types.ProductRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrMissingDump, path)
		}
		return nil, err
	}
	var records []types.ProductRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func matchesQuery(rec types.ProductRecord, q Query) bool {
	if len(q.Sites) > 0 && !containsString(q.Sites, rec.Site) {
		return false
	}
	if len(q.Brands) > 0 && !containsString(q.Brands, rec.Brand) {
		return false
	}
	if !q.Since.IsZero() && rec.CollectedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && rec.CollectedAt.After(q.Until) {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
