// Package targets holds the static catalog of brand/site combinations
// the collector knows how to scrape, and builds the right scraper for
// each one.
package targets

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/luciusandi/bumbootools/internal/fetcher"
	"github.com/luciusandi/bumbootools/internal/scrape"
	"github.com/luciusandi/bumbootools/internal/types"
)

// Kind selects the scraper implementation for a target.
type Kind string

const (
	KindStatic      Kind = "static"
	KindColdStorage Kind = "coldstorage"
	KindFairPrice   Kind = "fairprice"
	KindRedMart     Kind = "redmart"
)

// Target defines a single scrape target: one brand's assortment at one
// storefront.
type Target struct {
	Slug        string
	Brand       string
	Description string
	Site        string
	Kind        Kind
	URL         string
	Size        string
	Ply         string
	Extra       map[string]string
}

// Job converts the target into the option bag scrapers consume.
func (t Target) Job() scrape.Job {
	options := map[string]string{"url": t.URL}
	if t.Size != "" {
		options["size"] = t.Size
	}
	if t.Ply != "" {
		options["ply"] = t.Ply
	}
	for k, v := range t.Extra {
		options[k] = v
	}
	return scrape.Job{
		Slug:        t.Slug,
		Brand:       t.Brand,
		Description: t.Description,
		Site:        t.Site,
		Options:     options,
	}
}

// NewScraper builds the scraper implementation for the target.
func NewScraper(t Target, f fetcher.Fetcher, logger *slog.Logger) (scrape.Scraper, error) {
	job := t.Job()
	switch t.Kind {
	case KindStatic:
		return scrape.NewStatic(job), nil
	case KindColdStorage:
		return scrape.NewColdStorage(job, f, logger), nil
	case KindFairPrice:
		return scrape.NewFairPrice(job, f, logger), nil
	case KindRedMart:
		return scrape.NewRedMart(job, f, logger), nil
	default:
		return nil, fmt.Errorf("target %s: %w: kind %q", t.Slug, types.ErrUnknownTarget, t.Kind)
	}
}

// Lookup returns the target registered under slug.
func Lookup(slug string) (Target, error) {
	t, ok := catalog[slug]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", types.ErrUnknownTarget, slug)
	}
	return t, nil
}

// All returns every registered target sorted by slug.
func All() []Target {
	out := make([]Target, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Sites returns the distinct storefront names in the catalog, sorted.
func Sites() []string {
	seen := make(map[string]struct{})
	for _, t := range catalog {
		seen[t.Site] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for site := range seen {
		out = append(out, site)
	}
	sort.Strings(out)
	return out
}
