package model

import "time"

// Recall is one announcement from an external per-country recall feed.
// Read-only to the matching core. Brand may be empty when the filing
// names no marketable brand (placeholder values are canonicalized to
// the empty string at ingestion).
type Recall struct {
	ID          string    `json:"id"`
	Country     string    `json:"country"`
	Brand       string    `json:"brand,omitempty"`
	Title       string    `json:"title,omitempty"`
	LotNumbers  []string  `json:"lot_numbers"`
	PublishedAt time.Time `json:"published_at"`
}

// RecallDetermination is the resolver's verdict for one product.
type RecallDetermination struct {
	Status          RecallStatus `json:"status"`
	RecallReference string       `json:"recall_reference,omitempty"`
}
