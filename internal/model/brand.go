package model

// BrandMatch is one scored match of free text against the brand corpus.
// Produced fresh per query, never persisted.
type BrandMatch struct {
	Brand        string  `json:"brand"`
	Confidence   float64 `json:"confidence"`
	IsExactMatch bool    `json:"is_exact_match"`
}
