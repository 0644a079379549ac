// Package universe manages the security universe of the compliance engine.
package universe

import "time"

// Security represents a screenable security. Identity is the ISIN;
// the ticker is a display alias and may change over time.
type Security struct {
	ISIN         string    `json:"isin"`
	Ticker       string    `json:"ticker"`
	Name         string    `json:"name"`
	Sector       string    `json:"sector"`
	Jurisdiction string    `json:"jurisdiction"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
