package models

import (
	"fmt"
	"time"
)

// AmenityKey names one of the amenities the pipeline can filter on.
type AmenityKey string

const (
	AmenityPool      AmenityKey = "pool"
	AmenityWhirlpool AmenityKey = "whirlpool"
	AmenitySauna     AmenityKey = "sauna"
	AmenityFireplace AmenityKey = "fireplace"
	AmenityParking   AmenityKey = "parking"
)

// OrderedAmenities fixes the evaluation order of amenity checks so rejection
// reasons are deterministic.
var OrderedAmenities = []AmenityKey{
	AmenityPool,
	AmenityWhirlpool,
	AmenitySauna,
	AmenityFireplace,
	AmenityParking,
}

// AmenityPref is one user amenity preference. Required amenities disqualify a
// listing when absent; preferred ones are detected but never reject.
type AmenityPref struct {
	Key         AmenityKey `yaml:"key" json:"key"`
	Required    bool       `yaml:"required" json:"required"`
	SearchTerms []string   `yaml:"search_terms" json:"search_terms"`
}

// SearchCriteria is the user-supplied search definition, loaded from
// config/search.yaml or posted to the API.
type SearchCriteria struct {
	Location    string `yaml:"location" json:"location"`
	CheckIn     string `yaml:"check_in" json:"check_in"`   // YYYY-MM-DD
	CheckOut    string `yaml:"check_out" json:"check_out"` // YYYY-MM-DD
	Guests      int    `yaml:"guests" json:"guests"`
	MinBedrooms int    `yaml:"min_bedrooms" json:"min_bedrooms"`

	// RadiusKm bounds the distance check; zero means unbounded.
	RadiusKm float64 `yaml:"search_radius_km" json:"search_radius_km"`

	MaxPricePerNight int `yaml:"max_price_per_night" json:"max_price_per_night"`

	// MinRating is keyed by platform and expressed in that platform's native
	// scale (Airbnb 0-5, the hotel platforms 0-10).
	MinRating  map[Platform]float64 `yaml:"min_rating" json:"min_rating"`
	MinReviews int                  `yaml:"min_reviews" json:"min_reviews"`

	SuperhostOnly bool          `yaml:"superhost_only" json:"superhost_only"`
	Amenities     []AmenityPref `yaml:"amenities" json:"amenities"`
	Platforms     []Platform    `yaml:"platforms" json:"platforms"`
}

const dateLayout = "2006-01-02"

// Validate checks the invariants the pipeline depends on: parseable, ordered
// dates and non-negative numeric fields.
func (c *SearchCriteria) Validate() error {
	if c.Location == "" {
		return fmt.Errorf("location is required")
	}
	in, err := time.Parse(dateLayout, c.CheckIn)
	if err != nil {
		return fmt.Errorf("check_in: %w", err)
	}
	out, err := time.Parse(dateLayout, c.CheckOut)
	if err != nil {
		return fmt.Errorf("check_out: %w", err)
	}
	if !out.After(in) {
		return fmt.Errorf("check_out %s must be after check_in %s", c.CheckOut, c.CheckIn)
	}
	if c.Guests < 1 {
		return fmt.Errorf("guests must be >= 1, got %d", c.Guests)
	}
	if c.MinBedrooms < 0 {
		return fmt.Errorf("min_bedrooms must be >= 0, got %d", c.MinBedrooms)
	}
	if c.RadiusKm < 0 {
		return fmt.Errorf("search_radius_km must be >= 0, got %g", c.RadiusKm)
	}
	if c.MaxPricePerNight < 0 {
		return fmt.Errorf("max_price_per_night must be >= 0, got %d", c.MaxPricePerNight)
	}
	if c.MinReviews < 0 {
		return fmt.Errorf("min_reviews must be >= 0, got %d", c.MinReviews)
	}
	return nil
}

// Nights returns the stay length in nights. Validate must have passed.
func (c *SearchCriteria) Nights() int {
	in, err1 := time.Parse(dateLayout, c.CheckIn)
	out, err2 := time.Parse(dateLayout, c.CheckOut)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// MinRatingFor returns the configured minimum for a platform in its native
// scale, or zero when none is set.
func (c *SearchCriteria) MinRatingFor(p Platform) float64 {
	if c.MinRating == nil {
		return 0
	}
	return c.MinRating[p]
}

// MinRatingNormalized converts a platform's native minimum onto the shared
// 0-5 scale given that platform's native scale maximum.
func (c *SearchCriteria) MinRatingNormalized(p Platform, nativeScale float64) float64 {
	native := c.MinRatingFor(p)
	if native == 0 || nativeScale <= 0 {
		return native
	}
	return native / (nativeScale / 5.0)
}

// RequiredAmenities returns only the preferences flagged required, in the
// canonical evaluation order.
func (c *SearchCriteria) RequiredAmenities() []AmenityPref {
	var required []AmenityPref
	for _, key := range OrderedAmenities {
		for _, pref := range c.Amenities {
			if pref.Key == key && pref.Required {
				required = append(required, pref)
			}
		}
	}
	return required
}

// AmenityByKey looks up a preference by key.
func (c *SearchCriteria) AmenityByKey(key AmenityKey) (AmenityPref, bool) {
	for _, pref := range c.Amenities {
		if pref.Key == key {
			return pref, true
		}
	}
	return AmenityPref{}, false
}
