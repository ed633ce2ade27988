package services

import (
	"testing"

	"stay_scout/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func filterCriteria() *models.SearchCriteria {
	return &models.SearchCriteria{
		Location:         "Zermatt",
		CheckIn:          "2026-12-18",
		CheckOut:         "2026-12-22",
		Guests:           2,
		RadiusKm:         5,
		MaxPricePerNight: 300,
		MinRating: map[models.Platform]float64{
			models.PlatformAirbnb:  4.0,
			models.PlatformBooking: 8.0,
		},
		MinReviews: 3,
	}
}

func passingRecord(p models.Platform) *models.ListingRecord {
	return &models.ListingRecord{
		Platform:      p,
		Title:         "Chalet Bergblick",
		URL:           "https://example.com/1",
		PricePerNight: intPtr(250),
		Rating:        floatPtr(4.5),
		ReviewCount:   10,
	}
}

func TestFilterChainOrder(t *testing.T) {
	c := filterCriteria()
	c.SuperhostOnly = true
	engine := NewFilterEngine(c, nil, false)

	// A record violating every check reports the first failing one; fixing
	// each violation in turn walks down the chain.
	rec := &models.ListingRecord{
		Platform:      models.PlatformAirbnb,
		Title:         "Chalet",
		URL:           "https://example.com/1",
		RawDistanceKm: 12,
	}

	steps := []struct {
		fix  func()
		want models.FilterReason
	}{
		{func() {}, models.ReasonDistance},
		{func() { rec.RawDistanceKm = 2 }, models.ReasonNoPrice},
		{func() { rec.PricePerNight = intPtr(500) }, models.ReasonPrice},
		{func() { rec.PricePerNight = intPtr(250) }, models.ReasonNoRating},
		{func() { rec.Rating = floatPtr(3.5) }, models.ReasonRating},
		{func() { rec.Rating = floatPtr(4.5) }, models.ReasonReviews},
		{func() { rec.ReviewCount = 10 }, models.ReasonSuperhost},
		{func() { rec.Superhost = true }, models.ReasonPassed},
	}
	for _, step := range steps {
		step.fix()
		res := engine.EvaluateCheap(rec)
		if res.Reason != step.want {
			t.Fatalf("expected reason %s, got %s", step.want, res.Reason)
		}
		if res.Passed != (step.want == models.ReasonPassed) {
			t.Fatalf("pass flag inconsistent with reason %s", res.Reason)
		}
	}
}

func TestFilterResolvedDistanceWins(t *testing.T) {
	engine := NewFilterEngine(filterCriteria(), nil, false)

	rec := passingRecord(models.PlatformAirbnb)
	rec.RawDistanceKm = 12 // outside the radius
	rec.DistanceResolved = true
	rec.DistanceKm = 3 // but actually close by road
	if res := engine.EvaluateCheap(rec); !res.Passed {
		t.Fatalf("resolved distance must override the raw figure, got %s", res.Reason)
	}

	rec.DistanceKm = 9
	if res := engine.EvaluateCheap(rec); res.Reason != models.ReasonDistance {
		t.Fatalf("resolved distance outside the radius must reject, got %s", res.Reason)
	}
}

func TestFilterUnknownDistancePasses(t *testing.T) {
	engine := NewFilterEngine(filterCriteria(), nil, false)

	rec := passingRecord(models.PlatformBooking)
	rec.Rating = floatPtr(4.3)
	if res := engine.EvaluateCheap(rec); !res.Passed {
		t.Fatalf("unknown distance must not reject, got %s", res.Reason)
	}
}

func TestFilterRatingNormalization(t *testing.T) {
	// Booking's 8.0 minimum lives on the 10-point scale; records store the
	// shared 0-5 scale, so the threshold is 4.0.
	engine := NewFilterEngine(filterCriteria(), nil, false)

	rec := passingRecord(models.PlatformBooking)
	rec.Rating = floatPtr(4.3)
	if res := engine.EvaluateCheap(rec); !res.Passed {
		t.Fatalf("4.3 must clear booking's normalized minimum, got %s", res.Reason)
	}
	rec.Rating = floatPtr(3.9)
	if res := engine.EvaluateCheap(rec); res.Reason != models.ReasonRating {
		t.Fatalf("3.9 must fail booking's normalized minimum, got %s", res.Reason)
	}
}

func TestFilterRequiredAmenities(t *testing.T) {
	c := filterCriteria()
	c.Amenities = []models.AmenityPref{
		{Key: models.AmenitySauna, Required: true, SearchTerms: []string{"sauna"}},
		{Key: models.AmenityPool, Required: true, SearchTerms: []string{"pool"}},
	}
	engine := NewFilterEngine(c, nil, false)

	rec := passingRecord(models.PlatformAirbnb)

	// The cheap pass has no amenity knowledge yet.
	if res := engine.EvaluateCheap(rec); !res.Passed {
		t.Fatalf("cheap pass must ignore amenities, got %s", res.Reason)
	}

	// Both missing: pool is checked first, its reason wins.
	if res := engine.Evaluate(rec); res.Reason != models.ReasonPool {
		t.Fatalf("expected pool rejection, got %s", res.Reason)
	}

	rec.HasPool = true
	if res := engine.Evaluate(rec); res.Reason != models.ReasonSauna {
		t.Fatalf("expected sauna rejection, got %s", res.Reason)
	}

	rec.HasSauna = true
	if res := engine.Evaluate(rec); !res.Passed {
		t.Fatalf("all required amenities present must pass, got %s", res.Reason)
	}
}

func TestFilterIdempotent(t *testing.T) {
	engine := NewFilterEngine(filterCriteria(), nil, false)
	rec := passingRecord(models.PlatformAirbnb)
	rec.PricePerNight = intPtr(400)

	first := engine.Evaluate(rec)
	second := engine.Evaluate(rec)
	if first != second {
		t.Fatalf("same record must evaluate identically: %+v vs %+v", first, second)
	}
}

func TestFilterDetailOnlyInDebug(t *testing.T) {
	rec := passingRecord(models.PlatformAirbnb)
	rec.PricePerNight = intPtr(400)

	quiet := NewFilterEngine(filterCriteria(), nil, false)
	if res := quiet.Evaluate(rec); res.Detail != "" {
		t.Fatalf("detail must stay empty outside debug, got %q", res.Detail)
	}
	verbose := NewFilterEngine(filterCriteria(), nil, true)
	if res := verbose.Evaluate(rec); res.Detail == "" {
		t.Fatal("debug mode must populate the detail")
	}
}

func TestFilterStatsAccumulateAndMerge(t *testing.T) {
	a := models.NewFilterStats()
	a.Record(models.FilterResult{Passed: false, Reason: models.ReasonPrice})
	a.Record(models.FilterResult{Passed: false, Reason: models.ReasonPrice})
	a.Record(models.FilterResult{Passed: true, Reason: models.ReasonPassed})
	a.DroppedCards = 1

	b := models.NewFilterStats()
	b.Record(models.FilterResult{Passed: false, Reason: models.ReasonRating})
	b.DistanceFailures = 2

	a.Merge(b)
	if a.Rejections[models.ReasonPrice] != 2 || a.Rejections[models.ReasonRating] != 1 {
		t.Fatalf("unexpected rejections: %v", a.Rejections)
	}
	if a.TotalRejected() != 3 {
		t.Fatalf("expected 3 total rejections, got %d", a.TotalRejected())
	}
	if a.Passed != 1 || a.DroppedCards != 1 || a.DistanceFailures != 2 {
		t.Fatalf("unexpected stats: %+v", a)
	}

	a.Merge(nil) // must not panic
}
