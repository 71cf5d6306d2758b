// Package observability tracks run counters and exposes them in
// Prometheus text format.
package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for the collector.
type Metrics struct {
	// Scrape metrics
	TargetsRun     atomic.Int64
	TargetsFailed  atomic.Int64
	RecordsScraped atomic.Int64

	// Reconciliation metrics
	RecordsMatched   atomic.Int64
	RecordsUnmatched atomic.Int64

	// Storage metrics
	RecordsStored atomic.Int64
	StoreFailures atomic.Int64

	// Runner metrics
	ActiveWorkers atomic.Int32

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"bumboo_targets_run_total", "Total scrape targets attempted", m.TargetsRun.Load()},
		{"bumboo_targets_failed_total", "Total scrape targets that errored", m.TargetsFailed.Load()},
		{"bumboo_records_scraped_total", "Total raw records scraped", m.RecordsScraped.Load()},
		{"bumboo_records_matched_total", "Total records matched to the catalog", m.RecordsMatched.Load()},
		{"bumboo_records_unmatched_total", "Total records left for review", m.RecordsUnmatched.Load()},
		{"bumboo_records_stored_total", "Total records persisted", m.RecordsStored.Load()},
		{"bumboo_store_failures_total", "Total failed persistence attempts", m.StoreFailures.Load()},
		{"bumboo_active_workers", "Currently active scrape workers", int64(m.ActiveWorkers.Load())},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all counters as a map, used for the end-of-run log.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"targets_run":       m.TargetsRun.Load(),
		"targets_failed":    m.TargetsFailed.Load(),
		"records_scraped":   m.RecordsScraped.Load(),
		"records_matched":   m.RecordsMatched.Load(),
		"records_unmatched": m.RecordsUnmatched.Load(),
		"records_stored":    m.RecordsStored.Load(),
		"store_failures":    m.StoreFailures.Load(),
		"active_workers":    int64(m.ActiveWorkers.Load()),
	}
}
