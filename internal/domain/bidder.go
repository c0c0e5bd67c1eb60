// Package domain defines the core entities of the bidding ledger: bidders,
// the singleton throne, pending bids, and the append-only settlement history.
package domain

import "time"

// ReignStats tracks a bidder's time on the throne across all of their reigns.
type ReignStats struct {
	TimesAsKing     int           `json:"times_as_king"`
	TotalTimeAsKing time.Duration `json:"total_time_as_king"`
	LongestReign    time.Duration `json:"longest_reign"`
	LastCrownedAt   *time.Time    `json:"last_crowned_at,omitempty"`
}

// Bidder is a participant in the auction. The identifier is issued by the
// external identity provider; the record is created on first interaction.
// TotalInvested is cumulative and never decreases.
type Bidder struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"display_name"`
	TotalInvested Cents      `json:"total_invested"`
	Stats         ReignStats `json:"stats"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
