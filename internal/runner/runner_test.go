package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/luciusandi/bumbootools/internal/config"
	"github.com/luciusandi/bumbootools/internal/fetcher"
	"github.com/luciusandi/bumbootools/internal/observability"
	"github.com/luciusandi/bumbootools/internal/storage"
	"github.com/luciusandi/bumbootools/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failFetcher errors every fetch, which makes every network-backed
// target fail while static targets still succeed.
type failFetcher struct{}

func (failFetcher) Fetch(context.Context, *fetcher.Request) (*fetcher.Response, error) {
	return nil, errors.New("network unavailable")
}
func (failFetcher) Close() error { return nil }
func (failFetcher) Type() string { return "fail" }

type captureStore struct {
	batches [][]types.ProductRecord
}

func (c *captureStore) Upsert(_ context.Context, records []types.ProductRecord) error {
	c.batches = append(c.batches, records)
	return nil
}
func (c *captureStore) ReadWindow(context.Context, storage.Query) ([]types.ProductRecord, error) {
	return nil, nil
}
func (c *captureStore) Close() error { return nil }
func (c *captureStore) Name() string { return "capture" }

func newTestRunner(t *testing.T, store storage.Store) (*Runner, *observability.Metrics) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Runner.Concurrency = 2
	dump, err := storage.NewJSONDump(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewJSONDump: %v", err)
	}
	metrics := observability.NewMetrics(testLogger())
	router := storage.NewRouter(store, dump, false, testLogger())
	return New(cfg, failFetcher{}, router, metrics, testLogger()), metrics
}

func TestRunStaticTarget(t *testing.T) {
	store := &captureStore{}
	r, metrics := newTestRunner(t, store)

	result, err := r.Run(context.Background(), []string{"example-ultra-soft"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TargetsRun != 1 || result.TargetsFailed != 0 {
		t.Errorf("targets run=%d failed=%d", result.TargetsRun, result.TargetsFailed)
	}
	if result.Scraped != 1 {
		t.Errorf("scraped = %d, want 1", result.Scraped)
	}
	// The static fixture record does not match the canonical catalog,
	// so it lands on the review side.
	if result.Matched != 0 || result.Unmatched != 1 {
		t.Errorf("matched=%d unmatched=%d", result.Matched, result.Unmatched)
	}
	if len(store.batches) != 0 {
		t.Errorf("store received %d batches, want 0", len(store.batches))
	}
	if got := metrics.RecordsUnmatched.Load(); got != 1 {
		t.Errorf("unmatched counter = %d", got)
	}
}

func TestRunFailingTargetDoesNotAbort(t *testing.T) {
	store := &captureStore{}
	r, metrics := newTestRunner(t, store)

	result, err := r.Run(context.Background(), []string{"fairprice-kleenex", "example-ultra-soft"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TargetsRun != 2 {
		t.Errorf("targets run = %d, want 2", result.TargetsRun)
	}
	if result.TargetsFailed != 1 {
		t.Errorf("targets failed = %d, want 1", result.TargetsFailed)
	}
	if result.Scraped != 1 {
		t.Errorf("scraped = %d, want 1 from the static target", result.Scraped)
	}
	if got := metrics.TargetsFailed.Load(); got != 1 {
		t.Errorf("failed counter = %d", got)
	}
}

func TestRunUnknownSlug(t *testing.T) {
	r, _ := newTestRunner(t, &captureStore{})
	_, err := r.Run(context.Background(), []string{"no-such-target"})
	if !errors.Is(err, types.ErrUnknownTarget) {
		t.Fatalf("err = %v, want ErrUnknownTarget", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	r, _ := newTestRunner(t, &captureStore{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, []string{"example-ultra-soft"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
