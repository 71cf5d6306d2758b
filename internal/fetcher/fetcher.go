// Package fetcher retrieves storefront pages and API payloads over HTTP
// or a headless browser. Scrapers stay transport-agnostic: they build
// Requests and read Responses, and the configured Fetcher decides how
// bytes actually arrive.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher is the interface for all transport implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Request describes a single page or API fetch.
type Request struct {
	// URL is the target URL.
	URL string

	// Headers are extra headers merged over the fetcher defaults.
	Headers http.Header

	// Timeout overrides the fetcher's request timeout when > 0.
	Timeout time.Duration

	// WaitSelector, for the browser fetcher, delays capture until the
	// selector is visible. Ignored by the HTTP fetcher.
	WaitSelector string
}

// NewRequest creates a GET request for the given URL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	return &Request{URL: u.String(), Headers: make(http.Header)}, nil
}

// Host returns the hostname of the request URL, or "" when unparsable.
func (r *Request) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Response is the result of a fetch.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response headers.
	Headers http.Header

	// Body is the decompressed response body.
	Body []byte

	// FinalURL is the URL after any redirects.
	FinalURL string

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when the response was received.
	FetchedAt time.Time

	doc *goquery.Document
}

// Document parses the body as HTML, lazily caching the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(r.Body)))
	if err != nil {
		return nil, err
	}
	r.doc = doc
	return doc, nil
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
