package services

import (
	"fmt"

	"stay_scout/models"
)

// FilterEngine applies the ordered predicate chain to normalized listings.
// The first failing check decides the reason; re-evaluating an unchanged
// record always yields the same result.
type FilterEngine struct {
	criteria *models.SearchCriteria
	scales   map[models.Platform]float64
	debug    bool
}

// NewFilterEngine builds an engine for one search. scales overrides the
// platforms' native rating scales; pass nil to use the defaults.
func NewFilterEngine(c *models.SearchCriteria, scales map[models.Platform]float64, debug bool) *FilterEngine {
	return &FilterEngine{criteria: c, scales: scales, debug: debug}
}

// EvaluateCheap runs the list-page checks only: distance, price, rating,
// review count and superhost. Amenity flags are not known before the detail
// fetch, so this pass exists to skip detail pages for hopeless candidates.
func (e *FilterEngine) EvaluateCheap(r *models.ListingRecord) models.FilterResult {
	c := e.criteria

	// Resolved distance wins over the platform's raw figure; no value at all
	// counts as 0 km and passes. Rejecting unknown distances would wipe out
	// platforms that never report one.
	if c.RadiusKm > 0 {
		distance := r.RawDistanceKm
		if r.DistanceResolved {
			distance = r.DistanceKm
		}
		if distance > c.RadiusKm {
			return e.fail(models.ReasonDistance, "distance: %.1f km > %.1f km", distance, c.RadiusKm)
		}
	}

	if r.PricePerNight == nil {
		return e.fail(models.ReasonNoPrice, "price not found")
	}
	if c.MaxPricePerNight > 0 && *r.PricePerNight > c.MaxPricePerNight {
		return e.fail(models.ReasonPrice, "price: CHF %d > %d", *r.PricePerNight, c.MaxPricePerNight)
	}

	if r.Rating == nil {
		return e.fail(models.ReasonNoRating, "rating not found")
	}
	if min := c.MinRatingNormalized(r.Platform, e.scaleFor(r.Platform)); min > 0 && *r.Rating < min {
		return e.fail(models.ReasonRating, "rating: %.2f < %.2f", *r.Rating, min)
	}

	if r.ReviewCount < c.MinReviews {
		return e.fail(models.ReasonReviews, "reviews: %d < %d", r.ReviewCount, c.MinReviews)
	}

	if c.SuperhostOnly && !r.Superhost {
		return e.fail(models.ReasonSuperhost, "not a superhost")
	}

	return models.FilterResult{Passed: true, Reason: models.ReasonPassed}
}

// Evaluate runs the full chain including required-amenity checks. A record
// must pass this after detail enrichment to be accepted.
func (e *FilterEngine) Evaluate(r *models.ListingRecord) models.FilterResult {
	if res := e.EvaluateCheap(r); !res.Passed {
		return res
	}

	for _, pref := range e.criteria.RequiredAmenities() {
		if !r.HasAmenity(pref.Key) {
			return e.fail(models.FilterReason(pref.Key), "missing required amenity: %s", pref.Key)
		}
	}

	return models.FilterResult{Passed: true, Reason: models.ReasonPassed}
}

func (e *FilterEngine) scaleFor(p models.Platform) float64 {
	if s, ok := e.scales[p]; ok && s > 0 {
		return s
	}
	return p.NativeRatingScale()
}

func (e *FilterEngine) fail(reason models.FilterReason, format string, args ...any) models.FilterResult {
	res := models.FilterResult{Passed: false, Reason: reason}
	if e.debug {
		res.Detail = fmt.Sprintf(format, args...)
	}
	return res
}
