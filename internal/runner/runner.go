// Package runner orchestrates a collection run: scrape every selected
// target, normalize the combined batch against the canonical catalog,
// and route the outcome to storage.
package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/luciusandi/bumbootools/internal/config"
	"github.com/luciusandi/bumbootools/internal/fetcher"
	"github.com/luciusandi/bumbootools/internal/observability"
	"github.com/luciusandi/bumbootools/internal/reconcile"
	"github.com/luciusandi/bumbootools/internal/storage"
	"github.com/luciusandi/bumbootools/internal/targets"
	"github.com/luciusandi/bumbootools/internal/types"
)

// Result summarizes one collection run.
type Result struct {
	TargetsRun    int
	TargetsFailed int
	Scraped       int
	Matched       int
	Unmatched     int
}

// Runner fans scrape targets out over a bounded worker pool.
type Runner struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	normalizer *reconcile.Normalizer
	router     *storage.Router
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func New(cfg *config.Config, f fetcher.Fetcher, router *storage.Router, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		fetcher:    f,
		normalizer: reconcile.NewNormalizer(logger),
		router:     router,
		metrics:    metrics,
		logger:     logger.With("component", "runner"),
	}
}

// Run scrapes the targets named by slugs, or every registered target
// when slugs is empty. A failing target is logged and skipped; the run
// proceeds with whatever the other targets produced.
func (r *Runner) Run(ctx context.Context, slugs []string) (*Result, error) {
	selected, err := r.resolve(slugs)
	if err != nil {
		return nil, err
	}

	concurrency := r.cfg.Runner.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	type outcome struct {
		slug    string
		records []types.ProductRecord
		err     error
	}

	jobs := make(chan targets.Target)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				r.metrics.ActiveWorkers.Add(1)
				records, err := r.scrapeTarget(ctx, target)
				r.metrics.ActiveWorkers.Add(-1)
				outcomes <- outcome{slug: target.Slug, records: records, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, target := range selected {
			select {
			case jobs <- target:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &Result{}
	var batch []types.ProductRecord
	for out := range outcomes {
		result.TargetsRun++
		r.metrics.TargetsRun.Add(1)
		if out.err != nil {
			result.TargetsFailed++
			r.metrics.TargetsFailed.Add(1)
			r.logger.Error("target failed", "slug", out.slug, "error", out.err)
			continue
		}
		r.logger.Info("target scraped", "slug", out.slug, "records", len(out.records))
		batch = append(batch, out.records...)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	result.Scraped = len(batch)
	r.metrics.RecordsScraped.Add(int64(len(batch)))

	matched, unmatched := r.normalizer.Normalize(batch)
	result.Matched = len(matched)
	result.Unmatched = len(unmatched)
	r.metrics.RecordsMatched.Add(int64(len(matched)))
	r.metrics.RecordsUnmatched.Add(int64(len(unmatched)))

	if err := r.router.Route(ctx, matched, unmatched); err != nil {
		r.metrics.StoreFailures.Add(1)
		return result, err
	}
	r.metrics.RecordsStored.Add(int64(len(matched)))

	r.logger.Info("run complete",
		"targets", result.TargetsRun,
		"failed", result.TargetsFailed,
		"scraped", result.Scraped,
		"matched", result.Matched,
		"unmatched", result.Unmatched,
	)
	return result, nil
}

func (r *Runner) resolve(slugs []string) ([]targets.Target, error) {
	if len(slugs) == 0 {
		return targets.All(), nil
	}
	out := make([]targets.Target, 0, len(slugs))
	for _, slug := range slugs {
		target, err := targets.Lookup(slug)
		if err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	return out, nil
}

func (r *Runner) scrapeTarget(ctx context.Context, target targets.Target) ([]types.ProductRecord, error) {
	scraper, err := targets.NewScraper(target, r.fetcher, r.logger)
	if err != nil {
		return nil, err
	}
	return scraper.Scrape(ctx)
}
