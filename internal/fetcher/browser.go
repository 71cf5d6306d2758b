package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/luciusandi/bumbootools/internal/config"
	"github.com/luciusandi/bumbootools/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// Some storefronts serve their listing markup only to a real browser;
// this backend renders the page and hands the resulting HTML to the
// same scraper code the HTTP backend feeds.
type BrowserFetcher struct {
	browser  *rod.Browser
	cfg      *config.FetcherConfig
	logger   *slog.Logger
	pagePool chan *rod.Page
	maxPages int
	stealth  bool

	mu     sync.Mutex
	closed bool
}

// NewBrowserFetcher launches a headless Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:      &cfg.Fetcher,
		logger:   logger.With("component", "browser_fetcher"),
		maxPages: cfg.Fetcher.BrowserPages,
		stealth:  cfg.Fetcher.BrowserStealth,
	}
	if bf.maxPages < 1 {
		bf.maxPages = 1
	}

	launchURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	bf.pagePool = make(chan *rod.Page, bf.maxPages)

	bf.logger.Info("browser fetcher ready", "max_pages", bf.maxPages, "stealth", bf.stealth)
	return bf, nil
}

// Fetch navigates to the request URL and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	page, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: err, Retryable: true}
	}
	defer bf.putPage(page)

	if ua := req.Headers.Get("User-Agent"); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	timeout := bf.cfg.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := page.Context(ctx).Timeout(timeout).Navigate(req.URL); err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: err, Retryable: true}
	}

	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URL, "error", err)
	}

	if req.WaitSelector != "" {
		el, err := page.Timeout(10 * time.Second).Element(req.WaitSelector)
		if err != nil {
			bf.logger.Warn("wait selector timeout", "selector", req.WaitSelector, "error", err)
		} else if err := el.WaitVisible(); err != nil {
			bf.logger.Warn("wait selector never visible", "selector", req.WaitSelector, "error", err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URL, Err: err, Retryable: true}
	}

	finalURL := req.URL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URL,
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return &Response{
		StatusCode:    200, // Rod doesn't easily expose status codes
		Body:          []byte(html),
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// Close shuts down the browser and releases resources. The pool channel
// is never closed: an in-flight Fetch may still return its page, and a
// send on a closed channel would panic. Instead Close marks the fetcher
// closed, drains whatever is pooled, and lets late putPage calls close
// their page directly.
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	if bf.closed {
		bf.mu.Unlock()
		return nil
	}
	bf.closed = true
	bf.mu.Unlock()

	for {
		select {
		case page := <-bf.pagePool:
			_ = page.Close()
		default:
			if bf.browser != nil {
				return bf.browser.Close()
			}
			return nil
		}
	}
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// getPage retrieves a page from the pool or creates a new one.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	bf.mu.Lock()
	closed := bf.closed
	bf.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("browser fetcher is closed")
	}

	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
		if bf.stealth {
			return stealth.Page(bf.browser)
		}
		return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
}

// putPage returns a page to the pool, or closes it when the fetcher has
// shut down in the meantime.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	bf.mu.Lock()
	closed := bf.closed
	bf.mu.Unlock()
	if closed {
		_ = page.Close()
		return
	}

	// Navigate to blank to free memory from the last page
	_ = page.Navigate("about:blank")

	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close() // Pool full, close the page
	}
}

// New creates the configured fetcher backend.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "", "http":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported fetcher type: %s", cfg.Fetcher.Type)
	}
}
