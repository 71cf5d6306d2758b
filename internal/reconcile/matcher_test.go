package reconcile

import (
	"strings"
	"testing"

	"github.com/luciusandi/bumbootools/internal/types"
)

func record(brand, description, size string) types.ProductRecord {
	rec := types.NewRecord(brand, description, "Test Store")
	rec.Size = size
	rec.SourceURL = "https://example.com/p/1"
	return rec
}

// --- Matcher tests ---

func TestMatchExactSize(t *testing.T) {
	m := NewMatcher()

	// "16 x 190" appears on exactly one Kleenex rule; the description is
	// deliberately unrelated so only the size-equality arm can fire.
	got, ok := m.Match(record("Kleenex", "KLX bathroom pack", "16 x 190"))
	if !ok {
		t.Fatal("expected match via exact size equality")
	}
	if got.Description != "Supreme Soft" || got.Size != "16 x 190" {
		t.Errorf("got %+v, want Supreme Soft / 16 x 190", got)
	}
}

func TestMatchDescriptionContainment(t *testing.T) {
	m := NewMatcher()

	got, ok := m.Match(record("Kleenex", "Kleenex: Green-Tea!!", ""))
	if !ok {
		t.Fatal("expected match via description containment")
	}
	if got.Description != "Green Tea" {
		t.Errorf("description = %q, want %q", got.Description, "Green Tea")
	}
	if got.Size != "20 x 190" {
		t.Errorf("size = %q, want %q", got.Size, "20 x 190")
	}
}

func TestMatchSizeSkeleton(t *testing.T) {
	m := NewMatcher()

	// "30x220pcs" and "30 x 220" share the skeleton "30x220" only after
	// stripping units and spaces, so neither exact equality nor the
	// (unrelated) description can be responsible for the match.
	rules := []CanonicalRule{
		{Brand: "FairPrice", Description: "Onwards Toilet Rolls", Size: "30x220"},
	}
	m = NewMatcherWithRules(rules, nil)

	got, ok := m.Match(record("FairPrice", "FP value pack", "30x220pcs"))
	if !ok {
		t.Fatal("expected match via size skeleton containment")
	}
	if got.Description != "Onwards Toilet Rolls" {
		t.Errorf("description = %q, want Onwards Toilet Rolls", got.Description)
	}
}

func TestMatchSkeletonRequiresBothSidesNonEmpty(t *testing.T) {
	// A rule with a non-numeric size must never match everything via an
	// empty-substring skeleton test.
	rules := []CanonicalRule{
		{Brand: "Tempo", Description: "Travel Pack", Size: "carton"},
	}
	m := NewMatcherWithRules(rules, nil)

	if _, ok := m.Match(record("Tempo", "something else", "10 x 1")); ok {
		t.Error("rule with empty size skeleton must not match on skeleton containment")
	}
	if _, ok := m.Match(record("Tempo", "something else", "")); ok {
		t.Error("record with empty size must not match on skeleton containment")
	}
}

func TestBrandGateIsStrict(t *testing.T) {
	// Identical description and size, wrong brand: the gate must
	// short-circuit before any sub-condition runs.
	rules := []CanonicalRule{
		{Brand: "Paseo", Description: "Sensitive Skin", Size: "10 x 200"},
	}
	m := NewMatcherWithRules(rules, nil)

	if _, ok := m.Match(record("Kleenex", "Sensitive Skin", "10 x 200")); ok {
		t.Error("Kleenex record must never match a Paseo rule")
	}
	if _, ok := m.Match(record("Paseo", "Sensitive Skin", "10 x 200")); !ok {
		t.Error("same record with matching brand should match")
	}
}

func TestBrandGateCaseAndWhitespace(t *testing.T) {
	m := NewMatcher()

	if _, ok := m.Match(record("  kLeEnEx  ", "Ultra Soft Aloe", "20 x 190")); !ok {
		t.Error("brand compare should be case-insensitive and trimmed")
	}
}

func TestEmptyBrandNeverMatches(t *testing.T) {
	m := NewMatcher()

	// The catalog has no empty-brand entries, so a record without a brand
	// can match nothing even when description and size line up perfectly.
	if _, ok := m.Match(record("", "Ultra Soft Aloe", "20 x 190")); ok {
		t.Error("record with empty brand must not match")
	}
}

func TestFirstMatchWins(t *testing.T) {
	// Both rules satisfy the record; the earlier one must win every time.
	rules := []CanonicalRule{
		{Brand: "Vinda", Description: "Prestige Toilet Tissue", Size: "8 x 200"},
		{Brand: "Vinda", Description: "Prestige Bathroom - 4D Emboss Camillia", Size: "8 x 200"},
	}
	m := NewMatcherWithRules(rules, nil)
	rec := record("Vinda", "Vinda Prestige assortment", "8 x 200")

	for i := 0; i < 50; i++ {
		got, ok := m.Match(rec)
		if !ok {
			t.Fatal("expected a match")
		}
		if got.Description != "Prestige Toilet Tissue" {
			t.Fatalf("run %d: got %q, want the earlier rule to win", i, got.Description)
		}
	}
}

func TestKeywordFallbackAfterCanonicalExhausts(t *testing.T) {
	m := NewMatcher()

	// Contains "green" and "tea" but never the contiguous phrase, and the
	// size fits no Pursoft rule: only the keyword tier can claim it.
	got, ok := m.Match(record("Pursoft", "PURSOFT 3-Ply GREEN bamboo TEA scent", ""))
	if !ok {
		t.Fatal("expected keyword fallback match")
	}
	if got.Description != "Green Tea" || got.Size != "24 x 180" {
		t.Errorf("got %+v, want Green Tea / 24 x 180", got)
	}
}

func TestKeywordFallbackRequiresAllKeywords(t *testing.T) {
	m := NewMatcher()

	if _, ok := m.Match(record("Pursoft", "GREEN bamboo fresh", "")); ok {
		t.Error("keyword rule must require every keyword, not any")
	}
}

func TestCanonicalTierBeatsKeywordTier(t *testing.T) {
	// When punctuation collapse makes the canonical phrase contiguous
	// ("green,tea" -> "green tea"), the canonical tier claims the record
	// before the keyword tier is ever consulted.
	m := NewMatcher()

	got, ok := m.Match(record("Pursoft", "eco green,tea roll", ""))
	if !ok {
		t.Fatal("expected canonical description containment match")
	}
	if got.Description != "Green Tea" || got.Size != "24 x 180" {
		t.Errorf("got %+v, want Green Tea / 24 x 180", got)
	}
}

func TestNoMatchIsNotAnError(t *testing.T) {
	m := NewMatcher()

	got, ok := m.Match(record("UnknownBrand", "Ultra Soft Aloe", "20 x 190"))
	if ok {
		t.Errorf("expected no match, got %+v", got)
	}
}

// --- Helper tests ---

func TestCleanText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Kleenex: Green-Tea!!", "kleenex green tea"},
		{"  Ultra   Soft & Thick ", "ultra soft thick"},
		{"100% Virgin Pulp", "100 virgin pulp"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := CleanText(tc.in); got != tc.want {
			t.Errorf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSizeSkeleton(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"20 x 220", "20 x 220"},
		{"22x190ml", "22x190"},
		{"120 (CTN)", "120 "},
		{"24 Mega Rolls", "24  "},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SizeSkeleton(tc.in); got != tc.want {
			t.Errorf("SizeSkeleton(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// --- Fuzz targets ---

func FuzzCleanText(f *testing.F) {
	f.Add("Kleenex: Green-Tea!!")
	f.Add("  Ultra   Soft & Thick ")
	f.Add("100% Virgin Pulp Unscented")
	f.Fuzz(func(t *testing.T, s string) {
		got := CleanText(s)
		if got != CleanText(got) {
			t.Errorf("CleanText not idempotent for %q: %q vs %q", s, got, CleanText(got))
		}
		if strings.Contains(got, "  ") {
			t.Errorf("CleanText(%q) = %q contains a double space", s, got)
		}
		if got != strings.TrimSpace(got) {
			t.Errorf("CleanText(%q) = %q not trimmed", s, got)
		}
		if got != strings.ToLower(got) {
			t.Errorf("CleanText(%q) = %q not lowercased", s, got)
		}
	})
}

func FuzzSizeSkeleton(f *testing.F) {
	f.Add("20 x 220")
	f.Add("120 (CTN)")
	f.Add("24 Mega Rolls")
	f.Fuzz(func(t *testing.T, s string) {
		got := SizeSkeleton(s)
		if got != SizeSkeleton(got) {
			t.Errorf("SizeSkeleton not idempotent for %q", s)
		}
		for _, r := range got {
			if r != 'x' && r != ' ' && (r < '0' || r > '9') {
				t.Errorf("SizeSkeleton(%q) = %q contains %q", s, got, r)
			}
		}
	})
}

// --- Benchmarks ---

func BenchmarkMatch(b *testing.B) {
	m := NewMatcher()
	rec := record("Pursoft", "PurSoft Bathroom Toilet Rolls - Unscented 3ply", "24 x 220")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Match(rec)
	}
}
