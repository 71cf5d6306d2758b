package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luciusandi/bumbootools/internal/api"
	"github.com/luciusandi/bumbootools/internal/config"
	"github.com/luciusandi/bumbootools/internal/fetcher"
	"github.com/luciusandi/bumbootools/internal/observability"
	"github.com/luciusandi/bumbootools/internal/reconcile"
	"github.com/luciusandi/bumbootools/internal/runner"
	"github.com/luciusandi/bumbootools/internal/storage"
	"github.com/luciusandi/bumbootools/internal/targets"
)

var (
	cfgFile     string
	verbose     bool
	concurrent  int
	fetcherType string
	backend     string
	alwaysDump  bool
	apiPort     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bumboo",
		Short: "Bumboo is a toilet paper price collector",
		Long: `Bumboo scrapes toilet paper listings from Singapore grocery
storefronts, reconciles them against a canonical product catalog, and
serves the collected price history over a small HTTP API.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(targetsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [slug...]",
		Short: "Scrape targets, normalize, and persist the results",
		Long: "Scrape the named targets (or every registered target when none are\n" +
			"given), reconcile the records against the canonical catalog, and\n" +
			"route them to storage.",
		RunE: runScrape,
	}

	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "number of concurrent scrape workers (0 = config default)")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher type: http or browser")
	cmd.Flags().StringVar(&backend, "backend", "", "storage backend: mongo, sqlite, or json")
	cmd.Flags().BoolVar(&alwaysDump, "local-dump", false, "always write a JSON copy under the dump dir for auditing")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	store, err := storage.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	dump, err := storage.NewJSONDump(cfg.Storage.DumpDir, logger)
	if err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	router := storage.NewRouter(store, dump, cfg.Storage.AlwaysDump, logger)

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := runner.New(cfg, f, router, metrics, logger).Run(ctx, args)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	elapsed := time.Since(start)
	logger.Debug("final counters", "metrics", metrics.Snapshot())

	fmt.Printf("\nRun complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Targets:   %d run, %d failed\n", result.TargetsRun, result.TargetsFailed)
	fmt.Printf("  Records:   %d scraped\n", result.Scraped)
	fmt.Printf("  Matched:   %d stored via %s\n", result.Matched, store.Name())
	fmt.Printf("  Unmatched: %d queued for review\n", result.Unmatched)
	return nil
}

// normalizeCmd creates the "normalize" subcommand: a dry run of the
// reconciliation pass over an existing dump file.
func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <dump.json>",
		Short: "Reconcile a dump file against the canonical catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			records, err := storage.ReadDump(args[0])
			if err != nil {
				return fmt.Errorf("read dump: %w", err)
			}

			matched, unmatched := reconcile.NewNormalizer(logger).Normalize(records)
			fmt.Printf("%d record(s): %d matched, %d unmatched\n",
				len(records), len(matched), len(unmatched))
			for _, rec := range unmatched {
				fmt.Printf("  unmatched: %-12s %q size=%q site=%s\n",
					rec.Brand, rec.Description, rec.Size, rec.Site)
			}
			return nil
		},
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if apiPort > 0 {
				cfg.API.Port = apiPort
			}

			store, err := storage.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("create storage: %w", err)
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return api.NewServer(cfg, store, logger).Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&apiPort, "port", "p", 0, "listen port (0 = config default)")
	return cmd
}

// targetsCmd creates the "targets" subcommand.
func targetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List registered scrape targets",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%-28s %-12s %-14s %s\n", "SLUG", "BRAND", "SITE", "KIND")
			for _, t := range targets.All() {
				fmt.Printf("%-28s %-12s %-14s %s\n", t.Slug, t.Brand, t.Site, t.Kind)
			}
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  Type:             %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:  %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Politeness Delay: %s\n", cfg.Fetcher.PolitenessDelay)
			fmt.Printf("  Max Retries:      %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  User Agents:      %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nRunner:\n")
			fmt.Printf("  Concurrency:      %d\n", cfg.Runner.Concurrency)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Backend:          %s\n", cfg.Storage.Backend)
			fmt.Printf("  SQLite Path:      %s\n", cfg.Storage.SQLitePath)
			fmt.Printf("  Dump Dir:         %s\n", cfg.Storage.DumpDir)
			fmt.Printf("  Always Dump:      %v\n", cfg.Storage.AlwaysDump)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Port:             %d\n", cfg.API.Port)
			fmt.Printf("  Max Window:       %d days\n", cfg.API.MaxWindowDays)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:          %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:             %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Bumboo %s\n", config.Version)
		},
	}
}

// loadConfig loads the config file and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if concurrent > 0 {
		cfg.Runner.Concurrency = concurrent
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = fetcherType
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if alwaysDump {
		cfg.Storage.AlwaysDump = true
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
