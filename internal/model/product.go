package model

import "time"

// RecallStatus represents the persisted recall determination for a product.
type RecallStatus string

const (
	RecallStatusUnknown  RecallStatus = "unknown"
	RecallStatusSafe     RecallStatus = "safe"
	RecallStatusRecalled RecallStatus = "recalled"
	RecallStatusWarning  RecallStatus = "warning"
)

// Product is a scanned product as persisted by the surrounding app.
// RecallStatus and RecallReference are the only fields the matching
// core writes; everything else is read-only input.
type Product struct {
	ID              string       `json:"id"`
	Brand           string       `json:"brand"`
	LotNumber       string       `json:"lot_number"`
	Country         string       `json:"country"`
	RecallStatus    RecallStatus `json:"recall_status"`
	RecallReference string       `json:"recall_reference,omitempty"`
	ScannedAt       time.Time    `json:"scanned_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// IsRescind reports whether a status transition revokes a previous
// recall determination. Rescinds are logically reachable (a recall can
// be withdrawn) but must be logged and explicitly allowed by the caller
// rather than silently applied.
func IsRescind(from, to RecallStatus) bool {
	return from == RecallStatusRecalled && to == RecallStatusSafe
}
