package reconcile

import (
	"log/slog"

	"github.com/luciusandi/bumbootools/internal/types"
)

// Normalizer applies the Matcher across a batch of records and partitions
// them into matched (rewritten to canonical form) and unmatched (left
// verbatim for manual review).
type Normalizer struct {
	matcher *Matcher
	logger  *slog.Logger
}

// NewNormalizer creates a Normalizer over the built-in rule tables.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		matcher: NewMatcher(),
		logger:  logger.With("component", "normalizer"),
	}
}

// Normalize partitions records in input order. Every input lands in
// exactly one of the two output slices: matched records carry the
// canonical description/size with all other fields untouched; unmatched
// records are the originals, unmodified.
func (n *Normalizer) Normalize(records []types.ProductRecord) (matched, unmatched []types.ProductRecord) {
	matched = make([]types.ProductRecord, 0, len(records))
	unmatched = make([]types.ProductRecord, 0)

	for _, rec := range records {
		norm, ok := n.normalizeOne(rec)
		if ok {
			matched = append(matched, norm)
		} else {
			unmatched = append(unmatched, rec)
		}
	}

	n.logger.Debug("batch normalized",
		"input", len(records),
		"matched", len(matched),
		"unmatched", len(unmatched),
	)
	return matched, unmatched
}

// normalizeOne rewrites a single record to canonical form. A defect while
// rewriting one record must not abort the batch, so any panic downgrades
// the record to unmatched.
func (n *Normalizer) normalizeOne(rec types.ProductRecord) (out types.ProductRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("record normalization panicked, treating as unmatched",
				"brand", rec.Brand, "site", rec.Site, "panic", r)
			ok = false
		}
	}()

	canon, found := n.matcher.Match(rec)
	if !found {
		return types.ProductRecord{}, false
	}

	out = rec.Clone()
	out.Description = canon.Description
	out.Size = canon.Size
	return out, true
}
