// Package scrape extracts raw product listings from storefront pages and
// API payloads. Each scraper yields ProductRecords exactly as the site
// words them; reconciliation against the canonical catalog happens
// downstream.
package scrape

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/luciusandi/bumbootools/internal/types"
)

// Job carries the target metadata a scraper needs for one run: which
// brand assortment to pull, from which site, and any site-specific
// options (listing URL, API URL template, size/ply overrides).
type Job struct {
	Slug        string
	Brand       string
	Description string
	Site        string
	Options     map[string]string
}

// Option returns a job option value, or "" when unset.
func (j Job) Option(key string) string {
	return j.Options[key]
}

// Scraper is implemented by every site-specific scraper.
type Scraper interface {
	// Scrape fetches and extracts all records for the job.
	Scrape(ctx context.Context) ([]types.ProductRecord, error)

	// Site returns the storefront name records are attributed to.
	Site() string
}

var (
	plyRe       = regexp.MustCompile(`(?i)(\d+)\s*-?\s*ply`)
	sizeTokenRe = regexp.MustCompile(`(?i)\b\d+\S*`)
	numberRe    = regexp.MustCompile(`[\d.]+`)
)

// extractPly pulls a ply count ("3ply", "4 ply", "2-ply") out of a
// product name.
func extractPly(name string) string {
	m := plyRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractSize collects the numeric tokens of a product name after the
// brand prefix, skipping ply markers, e.g.
// "Kleenex Ultra Soft 20x190s 3ply" -> "20x190s".
func extractSize(name, brand string) string {
	trimmed := name
	if brand != "" && strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(brand)) {
		trimmed = strings.TrimSpace(trimmed[len(brand):])
	}

	var tokens []string
	for _, loc := range sizeTokenRe.FindAllStringIndex(trimmed, -1) {
		token := trimmed[loc[0]:loc[1]]
		if isPlyToken(token, trimmed, loc[0], loc[1]) {
			continue
		}
		tokens = append(tokens, token)
	}
	return strings.TrimSpace(strings.Join(tokens, " "))
}

// isPlyToken reports whether a numeric token is part of a ply marker
// rather than a pack size ("3" in "3ply" or "3 ply").
func isPlyToken(token, text string, start, end int) bool {
	if strings.Contains(strings.ToLower(token), "ply") {
		return true
	}
	tail := strings.ToLower(text[end:min(end+4, len(text))])
	if strings.HasPrefix(strings.TrimSpace(tail), "ply") {
		return true
	}
	head := strings.ToLower(text[max(0, start-3):start])
	return strings.HasSuffix(head, "ply")
}

// parsePrice extracts the first decimal number from a display price like
// "$12.95" or "S$ 9.50".
func parsePrice(s string) *float64 {
	m := numberRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

// safeFloat coerces a loosely-typed JSON value to a float pointer.
func safeFloat(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// safeInt coerces a loosely-typed JSON value to an int pointer.
func safeInt(v any) *int {
	f := safeFloat(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
