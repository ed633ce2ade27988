package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Platform identifies one accommodation booking site.
type Platform string

const (
	PlatformAirbnb    Platform = "airbnb"
	PlatformBooking   Platform = "booking"
	PlatformHotelsCom Platform = "hotelscom"
	PlatformExpedia   Platform = "expedia"
)

// AllPlatforms lists every supported platform in search order.
var AllPlatforms = []Platform{PlatformAirbnb, PlatformBooking, PlatformHotelsCom, PlatformExpedia}

// DisplayName returns the user-facing platform label used in reports.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformAirbnb:
		return "Airbnb"
	case PlatformBooking:
		return "Booking.com"
	case PlatformHotelsCom:
		return "Hotels.com"
	case PlatformExpedia:
		return "Expedia"
	}
	return string(p)
}

// NativeRatingScale is the point scale the platform displays ratings in.
// Airbnb rates out of 5; the hotel platforms rate out of 10.
func (p Platform) NativeRatingScale() float64 {
	if p == PlatformAirbnb {
		return 5
	}
	return 10
}

// FieldBag is the raw, platform-specific text harvested from one listing card
// or detail page. Selectors live in the per-platform handlers; everything past
// the bag works on these fields only.
type FieldBag struct {
	Title        string
	Subtitle     string
	PriceText    string
	RatingText   string
	ReviewsText  string
	BadgeText    string
	DistanceText string
	URL          string
	ImageURLs    []string

	// Detail-page fields, empty on the list pass.
	AmenityText  string
	Description  string
	ReviewBodies []string
}

// ListingRecord is the normalized output of one extracted listing. Every field
// is always present: nil pointers mean the value could not be resolved, numeric
// defaults are zero, flags default false.
type ListingRecord struct {
	Platform      Platform `json:"platform"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	PricePerNight *int     `json:"price_per_night"`
	TotalPrice    *int     `json:"total_price,omitempty"` // set when the raw figure was reinterpreted as a stay total
	Rating        *float64 `json:"rating"`                // normalized 0-5 scale
	ReviewCount   int      `json:"num_reviews"`
	Superhost     bool     `json:"is_superhost"`
	URL           string   `json:"url"`
	ImageURLs     []string `json:"image_urls"`
	Description   string   `json:"description,omitempty"`
	Reviews       []string `json:"reviews,omitempty"`

	HasPool      bool `json:"has_pool"`
	HasWhirlpool bool `json:"has_whirlpool"`
	HasSauna     bool `json:"has_sauna"`
	HasFireplace bool `json:"has_fireplace"`
	HasParking   bool `json:"has_parking"`

	// RawDistanceKm is the platform-reported distance ("3 km vom Zentrum"),
	// DistanceKm the geocoded driving distance. Zero means unknown for both.
	RawDistanceKm    float64 `json:"raw_distance_km"`
	DistanceKm       float64 `json:"distance_km"`
	DurationMin      int     `json:"duration_min"`
	DistanceResolved bool    `json:"distance_resolved"`

	Analysis  *ReviewAnalysis `json:"review_analysis,omitempty"`
	ScrapedAt time.Time       `json:"scraped_at"`
}

// PriceOrZero flattens the nullable nightly price for tabular export.
func (r *ListingRecord) PriceOrZero() int {
	if r.PricePerNight == nil {
		return 0
	}
	return *r.PricePerNight
}

// RatingOrZero flattens the nullable rating for tabular export.
func (r *ListingRecord) RatingOrZero() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

// HasAmenity reads the detection flag for one amenity key.
func (r *ListingRecord) HasAmenity(key AmenityKey) bool {
	switch key {
	case AmenityPool:
		return r.HasPool
	case AmenityWhirlpool:
		return r.HasWhirlpool
	case AmenitySauna:
		return r.HasSauna
	case AmenityFireplace:
		return r.HasFireplace
	case AmenityParking:
		return r.HasParking
	}
	return false
}

// SetAmenity writes the detection flag for one amenity key.
func (r *ListingRecord) SetAmenity(key AmenityKey, present bool) {
	switch key {
	case AmenityPool:
		r.HasPool = present
	case AmenityWhirlpool:
		r.HasWhirlpool = present
	case AmenitySauna:
		r.HasSauna = present
	case AmenityFireplace:
		r.HasFireplace = present
	case AmenityParking:
		r.HasParking = present
	}
}

// ListingMatch records a potential cross-platform duplicate. Matches are
// annotations for later review; the merged result set is never reduced by them.
type ListingMatch struct {
	ID           int64           `json:"id" db:"id"`
	SearchID     uuid.UUID       `json:"search_id" db:"search_id"`
	ListingA     uuid.UUID       `json:"listing_a" db:"listing_a"`
	ListingB     uuid.UUID       `json:"listing_b" db:"listing_b"`
	Confidence   float32         `json:"confidence" db:"confidence"`
	MatchReasons json.RawMessage `json:"match_reasons" db:"match_reasons"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

const (
	ImageStatusPending  = "pending"
	ImageStatusUploaded = "uploaded"
	ImageStatusFailed   = "failed"
)

// ListingImage is one queued listing photo awaiting download and archival.
type ListingImage struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ListingID   uuid.UUID  `json:"listing_id" db:"listing_id"`
	OriginalURL string     `json:"original_url" db:"original_url"`
	S3Key       *string    `json:"s3_key" db:"s3_key"` // nullable until uploaded
	ContentHash string     `json:"content_hash" db:"content_hash"`
	Status      string     `json:"status" db:"status"` // pending, uploaded, failed
	Attempts    int        `json:"attempts" db:"attempts"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UploadedAt  *time.Time `json:"uploaded_at" db:"uploaded_at"`
}
