package models

import (
	"encoding/json"
	"time"
)

type FavoriteStatus string

const (
	FavoriteStatusActive      FavoriteStatus = "active"
	FavoriteStatusUnavailable FavoriteStatus = "unavailable"
)

// Favorite is a saved listing pinned by the user. The listing payload is
// stored as raw JSON so favorites survive schema changes to ListingRecord.
type Favorite struct {
	ID            int64           `json:"id" db:"id"`
	ListName      string          `json:"list_name" db:"list_name"`
	Location      string          `json:"location" db:"location"`
	Listing       json.RawMessage `json:"listing" db:"listing"`
	Status        FavoriteStatus  `json:"status" db:"status"`
	LastCheckedAt *time.Time      `json:"last_checked_at" db:"last_checked_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// ListingURL unwraps the stored payload's url field for availability checks.
func (f *Favorite) ListingURL() string {
	var partial struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(f.Listing, &partial); err != nil {
		return ""
	}
	return partial.URL
}
