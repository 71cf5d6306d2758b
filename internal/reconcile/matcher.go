// Package reconcile maps scraped product records onto a curated canonical
// catalog so that aggregation by brand/description/size is stable across
// sites and over time. Matching is a deterministic rule procedure, not
// similarity scoring: records that fit no rule are routed to manual
// review instead of being forced into the catalog.
package reconcile

import (
	"regexp"
	"strings"

	"github.com/luciusandi/bumbootools/internal/types"
)

// Canonical is the catalog identity applied to a matched record.
type Canonical struct {
	Description string
	Size        string
}

// Matcher decides whether a record corresponds to a canonical catalog
// entry. It is a pure function of the rule tables and the record, and is
// safe for concurrent use.
type Matcher struct {
	rules    []CanonicalRule
	keywords []KeywordRule
}

// NewMatcher creates a Matcher over the built-in rule tables.
func NewMatcher() *Matcher {
	return &Matcher{rules: canonicalTable, keywords: keywordTable}
}

// NewMatcherWithRules creates a Matcher over caller-supplied tables.
// Used by tests; production code always runs the built-in catalog.
func NewMatcherWithRules(rules []CanonicalRule, keywords []KeywordRule) *Matcher {
	return &Matcher{rules: rules, keywords: keywords}
}

// Match returns the canonical description/size for the record, or ok=false
// when neither tier produces a match. No match is a normal outcome, never
// an error.
func (m *Matcher) Match(rec types.ProductRecord) (Canonical, bool) {
	for _, rule := range m.rules {
		if ruleMatches(rule, rec) {
			return Canonical{Description: rule.Description, Size: rule.Size}, true
		}
	}

	// Keyword fallback works on the raw lowercased description, not the
	// cleaned form the canonical tier uses.
	desc := strings.ToLower(rec.Description)
	brand := strings.TrimSpace(rec.Brand)
	for _, kr := range m.keywords {
		if !strings.EqualFold(brand, kr.Brand) {
			continue
		}
		if containsAll(desc, kr.Keywords) {
			return Canonical{Description: kr.Description, Size: kr.Size}, true
		}
	}

	return Canonical{}, false
}

// ruleMatches tests one canonical rule against a record. The brand gate is
// strict; past it, any one of exact size equality, cleaned-description
// containment, or size-skeleton containment accepts the rule.
func ruleMatches(rule CanonicalRule, rec types.ProductRecord) bool {
	if !strings.EqualFold(strings.TrimSpace(rule.Brand), strings.TrimSpace(rec.Brand)) {
		return false
	}

	size := strings.ToLower(strings.TrimSpace(rec.Size))
	if size != "" && strings.ToLower(strings.TrimSpace(rule.Size)) == size {
		return true
	}

	if strings.Contains(CleanText(rec.Description), CleanText(rule.Description)) {
		return true
	}

	recSkel := SizeSkeleton(size)
	ruleSkel := SizeSkeleton(rule.Size)
	return recSkel != "" && ruleSkel != "" && strings.Contains(recSkel, ruleSkel)
}

func containsAll(s string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(s, kw) {
			return false
		}
	}
	return true
}

var (
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9_]+`)
	nonSkeletonRe = regexp.MustCompile(`[^0-9x ]`)
)

// CleanText lowercases s and collapses every run of non-alphanumeric
// characters into a single space, trimming the result. Punctuation,
// hyphenation, and casing differences disappear; word order does not.
func CleanText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(nonAlnumRe.ReplaceAllString(s, " "))
}

// SizeSkeleton reduces a size string to digits, "x", and spaces, e.g.
// "22x190ml" -> "22x190". Unit suffixes and container notes drop out,
// leaving only the numeric pack pattern.
func SizeSkeleton(s string) string {
	return nonSkeletonRe.ReplaceAllString(strings.ToLower(s), "")
}
