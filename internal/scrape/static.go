package scrape

import (
	"context"
	"strconv"

	"github.com/luciusandi/bumbootools/internal/types"
)

// Static emits deterministic records from job options alone. Useful
// for validating the pipeline without touching a live storefront.
type Static struct {
	job Job
}

func NewStatic(job Job) *Static {
	return &Static{job: job}
}

func (s *Static) Site() string { return s.job.Site }

func (s *Static) Scrape(_ context.Context) ([]types.ProductRecord, error) {
	rec := types.NewRecord(s.job.Brand, s.job.Description, s.job.Site)
	rec.Size = firstNonEmpty(s.job.Option("size"), "24 mega rolls")
	rec.Ply = firstNonEmpty(s.job.Option("ply"), "3")
	rec.SourceURL = firstNonEmpty(s.job.Option("url"), "https://example.com/toilet-paper")
	rec.Price = optionFloat(s.job, "price", 29.99)
	rec.TotalReviews = optionInt(s.job, "total_reviews", 1200)
	rec.TotalRating = optionFloat(s.job, "total_rating", 4.8)
	rec.SetMeta("note", "static fixture record")
	return []types.ProductRecord{rec}, nil
}

func optionFloat(job Job, key string, fallback float64) *float64 {
	if raw := job.Option(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return &v
		}
	}
	return &fallback
}

func optionInt(job Job, key string, fallback int) *int {
	if raw := job.Option(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return &v
		}
	}
	return &fallback
}
