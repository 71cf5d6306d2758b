package types

import (
	"encoding/json"
	"time"
)

// ProductRecord represents a single toilet paper product observation
// scraped from one storefront at one point in time.
type ProductRecord struct {
	// Brand is the vendor-supplied brand name.
	Brand string `json:"brand" bson:"brand" db:"brand"`

	// Description is the free-text product title as shown on the site.
	Description string `json:"description" bson:"description" db:"description"`

	// Site identifies the storefront the record came from.
	Site string `json:"site" bson:"site" db:"site"`

	// Size is the free-text pack-size string (e.g. "20 x 220"), if known.
	Size string `json:"size,omitempty" bson:"size,omitempty" db:"size"`

	// Ply is the sheet ply count as text, if known.
	Ply string `json:"ply,omitempty" bson:"ply,omitempty" db:"ply"`

	// Price is the listed price, nil when the site showed none.
	Price *float64 `json:"price" bson:"price,omitempty" db:"price"`

	// TotalReviews is the review count, nil when unavailable.
	TotalReviews *int `json:"total_reviews" bson:"total_reviews,omitempty" db:"total_reviews"`

	// TotalRating is the average rating, nil when unavailable.
	TotalRating *float64 `json:"total_rating" bson:"total_rating,omitempty" db:"total_rating"`

	// SourceURL is the page the record was extracted from.
	SourceURL string `json:"source_url" bson:"source_url" db:"source_url"`

	// Metadata carries site-specific extras, passed through untouched.
	Metadata map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty" db:"-"`

	// CollectedAt is when the record was scraped.
	CollectedAt time.Time `json:"collected_at" bson:"collected_at" db:"collected_at"`
}

// NewRecord creates a ProductRecord stamped with the current time.
func NewRecord(brand, description, site string) ProductRecord {
	return ProductRecord{
		Brand:       brand,
		Description: description,
		Site:        site,
		Metadata:    make(map[string]any),
		CollectedAt: time.Now().UTC(),
	}
}

// Clone returns a copy of the record with its own metadata map.
// Pointer fields are duplicated so the clone shares no storage with
// the original.
func (r ProductRecord) Clone() ProductRecord {
	clone := r
	if r.Price != nil {
		p := *r.Price
		clone.Price = &p
	}
	if r.TotalReviews != nil {
		n := *r.TotalReviews
		clone.TotalReviews = &n
	}
	if r.TotalRating != nil {
		f := *r.TotalRating
		clone.TotalRating = &f
	}
	if r.Metadata != nil {
		clone.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// SetMeta records a metadata value, allocating the map if needed.
func (r *ProductRecord) SetMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// MetadataJSON serializes the metadata map for flat storage backends.
func (r ProductRecord) MetadataJSON() string {
	if len(r.Metadata) == 0 {
		return ""
	}
	b, err := json.Marshal(r.Metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// Float64Ptr is a convenience for building optional price/rating fields.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr is a convenience for building optional count fields.
func IntPtr(v int) *int { return &v }
