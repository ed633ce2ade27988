package services

import (
	"testing"

	"stay_scout/models"
)

func priced(p models.Platform, title string, price int) *models.ListingRecord {
	return &models.ListingRecord{Platform: p, Title: title, URL: "https://example.com/" + title, PricePerNight: intPtr(price)}
}

func TestCombineSortsByPrice(t *testing.T) {
	perPlatform := map[models.Platform][]*models.ListingRecord{
		models.PlatformBooking:   {priced(models.PlatformBooking, "b1", 150)},
		models.PlatformAirbnb:    {priced(models.PlatformAirbnb, "a1", 100)},
		models.PlatformHotelsCom: {priced(models.PlatformHotelsCom, "h1", 300)},
	}

	combined, counts := Combine(perPlatform)
	if len(combined) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(combined))
	}
	for i, want := range []int{100, 150, 300} {
		if got := combined[i].PriceOrZero(); got != want {
			t.Fatalf("position %d: expected price %d, got %d", i, want, got)
		}
	}
	if counts[models.PlatformAirbnb] != 1 || counts[models.PlatformBooking] != 1 || counts[models.PlatformHotelsCom] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if _, ok := counts[models.PlatformExpedia]; ok {
		t.Fatal("empty platform must not appear in counts")
	}
}

func TestCombineUnpricedLast(t *testing.T) {
	perPlatform := map[models.Platform][]*models.ListingRecord{
		models.PlatformAirbnb: {
			&models.ListingRecord{Platform: models.PlatformAirbnb, Title: "no price", URL: "https://example.com/np"},
			priced(models.PlatformAirbnb, "a1", 220),
		},
		models.PlatformBooking: {priced(models.PlatformBooking, "b1", 180)},
	}

	combined, _ := Combine(perPlatform)
	if len(combined) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(combined))
	}
	if combined[0].PriceOrZero() != 180 || combined[1].PriceOrZero() != 220 {
		t.Fatalf("priced listings must come first, got %d then %d", combined[0].PriceOrZero(), combined[1].PriceOrZero())
	}
	if combined[2].Title != "no price" {
		t.Fatalf("unpriced listing must sort last, got %q", combined[2].Title)
	}
}

func TestCombineEqualPriceKeepsPlatformOrder(t *testing.T) {
	perPlatform := map[models.Platform][]*models.ListingRecord{
		models.PlatformBooking: {priced(models.PlatformBooking, "b1", 200)},
		models.PlatformAirbnb:  {priced(models.PlatformAirbnb, "a1", 200)},
	}

	// Map iteration order must not leak into the result: at equal prices the
	// canonical platform order decides.
	for i := 0; i < 20; i++ {
		combined, _ := Combine(perPlatform)
		if combined[0].Platform != models.PlatformAirbnb || combined[1].Platform != models.PlatformBooking {
			t.Fatalf("run %d: expected airbnb before booking, got %s then %s", i, combined[0].Platform, combined[1].Platform)
		}
	}
}

func TestPriceSummary(t *testing.T) {
	listings := []*models.ListingRecord{
		priced(models.PlatformAirbnb, "a", 100),
		priced(models.PlatformBooking, "b", 150),
		priced(models.PlatformHotelsCom, "h", 300),
		{Platform: models.PlatformExpedia, Title: "unpriced", URL: "https://example.com/u"},
	}

	stats := PriceSummary(listings)
	if stats.Min != 100 || stats.Max != 300 {
		t.Fatalf("expected min 100 max 300, got %d/%d", stats.Min, stats.Max)
	}
	if stats.Mean != 183.33 {
		t.Fatalf("expected mean 183.33, got %.2f", stats.Mean)
	}
}

func TestPriceSummaryAllUnpriced(t *testing.T) {
	listings := []*models.ListingRecord{
		{Platform: models.PlatformAirbnb, Title: "u1", URL: "https://example.com/1"},
	}
	stats := PriceSummary(listings)
	if stats.Min != 0 || stats.Max != 0 || stats.Mean != 0 {
		t.Fatalf("unpriced-only input must yield zero stats, got %+v", stats)
	}
}
