package model

import "time"

// LotPattern is one learned lot-number shape for a brand, keyed
// uniquely by (brand, template). Count, LastSeen and ExampleLot are
// updated on every observation of the same template.
type LotPattern struct {
	ID         string    `json:"id"`
	Brand      string    `json:"brand"`
	Template   string    `json:"template"`
	Regex      string    `json:"regex"`
	ExampleLot string    `json:"example_lot"`
	Count      int64     `json:"count"`
	LastSeen   time.Time `json:"last_seen"`
}

// PatternValidation is the advisory outcome of checking a lot number
// against a brand's learned patterns. IsValid=false means "new shape",
// never "reject the scan".
type PatternValidation struct {
	IsValid        bool        `json:"is_valid"`
	MatchedPattern *LotPattern `json:"matched_pattern,omitempty"`
	Confidence     float64     `json:"confidence"`
}
