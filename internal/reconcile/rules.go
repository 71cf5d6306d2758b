package reconcile

// CanonicalRule maps a scraped brand/description/size combination to the
// hand-curated catalog identity used for cross-site aggregation.
// Table order is significant: the first matching rule wins, so ambiguous
// entries must be ordered deliberately.
type CanonicalRule struct {
	Brand       string
	Description string
	Size        string
}

// KeywordRule is a fallback applied only after every CanonicalRule has
// been tried. It fires when the record's brand matches and every keyword
// appears in the raw lowercased description.
type KeywordRule struct {
	Brand       string
	Keywords    []string
	Description string
	Size        string
}

// canonicalTable is the curated reference catalog. Loaded once, never
// mutated at runtime.
var canonicalTable = []CanonicalRule{
	{Brand: "Beautex", Description: "Bathroom Tissue Rolls", Size: "20 x 220"},
	{Brand: "Cloversoft", Description: "Plant-Based Unbleached Bamboo", Size: "10 x 200"},
	{Brand: "FairPrice", Description: "Onwards Toilet Rolls", Size: "30 x 220"},
	{Brand: "FairPrice", Description: "DeluxSoft Bathroom Tissue", Size: "20 x 200"},
	{Brand: "FairPrice", Description: "DeluxSoft Bathroom Tissue", Size: "10 x 200"},
	{Brand: "FairPrice", Description: "Silky Soft Bathroom", Size: "24 x 200"},
	{Brand: "FairPrice", Description: "Silky Soft Bathroom", Size: "10 x 200"},
	{Brand: "FairPrice", Description: "DeluxSoft Bathroom", Size: "100 x 200"},
	{Brand: "FairPrice", Description: "DeluxSoft Bathroom", Size: "120 (CTN)"},
	{Brand: "FairPrice", Description: "Silky Soft Bathroom", Size: "100 x 200"},
	{Brand: "Kleenex", Description: "Toilet Rolls - Ultra Soft", Size: "20 x 200"},
	{Brand: "Kleenex", Description: "Ultra Soft Cottony", Size: "30 x 200"},
	{Brand: "Kleenex", Description: "Ultra Soft & Thick", Size: "20 x 180"},
	{Brand: "Kleenex", Description: "Ultra Soft Aloe", Size: "20 x 190"},
	{Brand: "Kleenex", Description: "Toilet Rolls - Ultra Soft", Size: "10 x 200"},
	{Brand: "Kleenex", Description: "Ultra Soft Aloe", Size: "22 x 190"},
	{Brand: "Kleenex", Description: "Toilet Rolls (4ply) + Moist Wipes", Size: "30 x 180"},
	{Brand: "Kleenex", Description: "Supreme Soft", Size: "16 x 190"},
	{Brand: "Kleenex", Description: "Green Tea", Size: "20 x 190"},
	{Brand: "Kleenex", Description: "Ultra Soft Aloe", Size: "10 x 190"},
	{Brand: "Neutra", Description: "Bathroom Tissue Rolls", Size: "20 x 190"},
	{Brand: "NooTrees", Description: "Bamboo Toilet Tissue", Size: "10 x 220"},
	{Brand: "Paseo", Description: "Bathroom Roll", Size: "10 x 200"},
	{Brand: "Paseo", Description: "Bathroom Roll", Size: "30 x 200"},
	{Brand: "Paseo", Description: "Sensitive Skin", Size: "10 x 200"},
	{Brand: "Paseo", Description: "Sensitive Skin", Size: "20 x 200"},
	{Brand: "Paseo", Description: "Luxury Pure Pulp", Size: "24 x 180"},
	{Brand: "Pursoft", Description: "100% Virgin Pulp Unscented", Size: "24 x 1"},
	{Brand: "Pursoft", Description: "Lavender Vanilla", Size: "24 x 180"},
	{Brand: "Pursoft", Description: "Bathroom Toilet R - Unscented", Size: "24 x 220"},
	{Brand: "Pursoft", Description: "Green Tea", Size: "24 x 180"},
	{Brand: "Pursoft", Description: "Citrus Verbena", Size: "24 x 180"},
	{Brand: "Pursoft", Description: "Bathroom Toilet R - Unscented", Size: "10 x 220"},
	{Brand: "Pursoft", Description: "Bathroom Toilet R - Unscented", Size: "10 x 200"},
	{Brand: "Pursoft", Description: "Charcoal Floral", Size: "10 x 220"},
	{Brand: "Pursoft", Description: "Lavender Vanilla", Size: "10 x 180"},
	{Brand: "Pursoft", Description: "Citrus Verbena", Size: "10 x 180"},
	{Brand: "Pursoft", Description: "Green Tea", Size: "10 x 180"},
	{Brand: "Pursoft", Description: "Charcoal Floral", Size: "24 x 220"},
	{Brand: "Tempo", Description: "Bathroom Tissue - Neutral", Size: "10 x 1"},
	{Brand: "Vinda", Description: "Deluxe Smooth Feel Toilet T", Size: "20 x 240"},
	{Brand: "Vinda", Description: "Deluxe Smooth Feel Mega Val", Size: "24 x 1"},
	{Brand: "Vinda", Description: "Prestige Bathroom - 4D Emboss Camillia", Size: "16 x 200"},
	{Brand: "Vinda", Description: "Prestige Toilet Tissue", Size: "8 x 200"},
	{Brand: "Vinda", Description: "Prestige Bathroom - 4D Emboss Camillia", Size: "8 x 200"},
	{Brand: "Vinda", Description: "Prestige Bathroom - 4D Emboss Camillia", Size: "8 x 200"},
}

// keywordTable holds the keyword fallbacks for brand lines whose scraped
// wording drifts too much for the canonical table.
var keywordTable = []KeywordRule{
	{Brand: "Pursoft", Keywords: []string{"green", "tea"}, Description: "Green Tea", Size: "24 x 180"},
	{Brand: "Pursoft", Keywords: []string{"lavender", "vanilla"}, Description: "Lavender Vanilla", Size: "24 x 180"},
}

// CanonicalRules returns the canonical table in declaration order.
func CanonicalRules() []CanonicalRule { return canonicalTable }

// KeywordRules returns the keyword fallback table in declaration order.
func KeywordRules() []KeywordRule { return keywordTable }
