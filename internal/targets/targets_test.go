package targets

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/luciusandi/bumbootools/internal/types"
)

func TestLookupKnownSlug(t *testing.T) {
	target, err := Lookup("fairprice-kleenex")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if target.Brand != "Kleenex" || target.Site != "FairPrice" {
		t.Errorf("got brand=%q site=%q", target.Brand, target.Site)
	}
	if target.Kind != KindFairPrice {
		t.Errorf("kind = %q", target.Kind)
	}
	apiURL := target.Extra["api_url"]
	if !strings.Contains(apiURL, "filter=brand%3Akleenex") {
		t.Errorf("api_url missing brand filter: %s", apiURL)
	}
	if !strings.Contains(apiURL, "page={page}") {
		t.Errorf("api_url missing page placeholder: %s", apiURL)
	}
}

func TestLookupUnknownSlug(t *testing.T) {
	_, err := Lookup("fairprice-nonexistent")
	if !errors.Is(err, types.ErrUnknownTarget) {
		t.Fatalf("err = %v, want ErrUnknownTarget", err)
	}
}

func TestAllIsSortedAndComplete(t *testing.T) {
	all := All()
	if len(all) != 25 {
		t.Fatalf("catalog has %d targets, want 25", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Slug >= all[i].Slug {
			t.Fatalf("targets not sorted: %q before %q", all[i-1].Slug, all[i].Slug)
		}
	}
}

func TestSites(t *testing.T) {
	sites := Sites()
	want := []string{"Cold Storage", "Example Store", "FairPrice", "RedMart"}
	if len(sites) != len(want) {
		t.Fatalf("sites = %v, want %v", sites, want)
	}
	for i := range want {
		if sites[i] != want[i] {
			t.Fatalf("sites = %v, want %v", sites, want)
		}
	}
}

func TestJobCarriesOptions(t *testing.T) {
	target, err := Lookup("example-ultra-soft")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	job := target.Job()
	if job.Option("size") != "24 Mega Rolls" {
		t.Errorf("size option = %q", job.Option("size"))
	}
	if job.Option("price") != "24.99" {
		t.Errorf("price option = %q", job.Option("price"))
	}
	if job.Option("url") != "https://example.com/toilet-paper" {
		t.Errorf("url option = %q", job.Option("url"))
	}
}

func TestNewScraperPerKind(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, target := range All() {
		s, err := NewScraper(target, nil, logger)
		if err != nil {
			t.Fatalf("NewScraper(%s): %v", target.Slug, err)
		}
		if s.Site() != target.Site {
			t.Errorf("%s: scraper site %q, want %q", target.Slug, s.Site(), target.Site)
		}
	}
}

func TestNewScraperUnknownKind(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewScraper(Target{Slug: "bogus", Kind: Kind("teleport")}, nil, logger)
	if !errors.Is(err, types.ErrUnknownTarget) {
		t.Fatalf("err = %v, want ErrUnknownTarget", err)
	}
}
