package services

import (
	"testing"

	"stay_scout/models"
)

func matchRecord(p models.Platform, title string, price int, rating float64) *models.ListingRecord {
	rec := &models.ListingRecord{Platform: p, Title: title, URL: "https://example.com/x"}
	if price > 0 {
		rec.PricePerNight = intPtr(price)
	}
	if rating > 0 {
		rec.Rating = floatPtr(rating)
	}
	return rec
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestScoreDuplicateSameNormalizedTitle(t *testing.T) {
	// "Ferienwohnung" and "Apartment" fold to the same lodging token, so the
	// titles count as identical across platforms.
	a := matchRecord(models.PlatformAirbnb, "Ferienwohnung Alpenblick", 250, 4.5)
	b := matchRecord(models.PlatformBooking, "Apartment Alpenblick", 240, 4.4)

	confidence, reasons, ok := scoreDuplicate(a, b)
	if !ok {
		t.Fatal("expected a duplicate flag")
	}
	if !hasReason(reasons, "same_title") {
		t.Fatalf("expected same_title, got %v", reasons)
	}
	if !hasReason(reasons, "close_price") || !hasReason(reasons, "close_rating") {
		t.Fatalf("expected supporting attributes, got %v", reasons)
	}
	if confidence != 0.95 {
		t.Fatalf("expected capped confidence 0.95, got %v", confidence)
	}
}

func TestScoreDuplicateSimilarTitle(t *testing.T) {
	a := matchRecord(models.PlatformAirbnb, "Chalet Edelweiss mit Sauna", 0, 0)
	b := matchRecord(models.PlatformHotelsCom, "Chalet Edelweiss Zermatt", 0, 0)

	confidence, reasons, ok := scoreDuplicate(a, b)
	if !ok {
		t.Fatal("expected a duplicate flag")
	}
	if !hasReason(reasons, "similar_title") || hasReason(reasons, "same_title") {
		t.Fatalf("expected similar_title only, got %v", reasons)
	}
	if confidence != 0.75 {
		t.Fatalf("expected base confidence 0.75, got %v", confidence)
	}
}

func TestScoreDuplicateWeakPair(t *testing.T) {
	// Unrelated titles still match when price and another attribute agree.
	a := matchRecord(models.PlatformAirbnb, "Bergstudio Panorama", 200, 4.2)
	b := matchRecord(models.PlatformBooking, "Chalet Edelweiss", 210, 4.0)

	confidence, reasons, ok := scoreDuplicate(a, b)
	if !ok {
		t.Fatal("expected a weak duplicate flag")
	}
	if hasReason(reasons, "same_title") || hasReason(reasons, "similar_title") {
		t.Fatalf("weak pair must not carry a title reason: %v", reasons)
	}
	if absFloat(confidence-0.65) > 1e-9 {
		t.Fatalf("expected confidence 0.65, got %v", confidence)
	}
}

func TestScoreDuplicateWeakPairNeedsClosePrice(t *testing.T) {
	// Two close attributes without close price are not enough.
	a := matchRecord(models.PlatformAirbnb, "Bergstudio Panorama", 100, 4.2)
	b := matchRecord(models.PlatformBooking, "Chalet Edelweiss", 300, 4.1)
	a.DistanceResolved, a.DistanceKm = true, 1.0
	b.DistanceResolved, b.DistanceKm = true, 1.5

	if _, _, ok := scoreDuplicate(a, b); ok {
		t.Fatal("weak pair without close price must not match")
	}
}

func TestScoreDuplicateRejectsDissimilar(t *testing.T) {
	a := matchRecord(models.PlatformAirbnb, "Bergstudio Panorama", 120, 4.8)
	b := matchRecord(models.PlatformBooking, "Chalet Edelweiss", 400, 3.2)

	if _, _, ok := scoreDuplicate(a, b); ok {
		t.Fatal("dissimilar listings must not match")
	}
}

func TestTitleOverlap(t *testing.T) {
	if got := titleOverlap("Chalet Alpenrose Zermatt", "Chalet Alpenrose"); got != 1.0 {
		t.Fatalf("expected full overlap against the smaller title, got %v", got)
	}
	if got := titleOverlap("Bergstudio Panorama", "Chalet Edelweiss"); got != 0 {
		t.Fatalf("expected zero overlap, got %v", got)
	}
	if got := titleOverlap("", "Chalet"); got != 0 {
		t.Fatalf("empty title must score zero, got %v", got)
	}
}

func TestClosePrice(t *testing.T) {
	cases := []struct {
		a, b int
		want bool
	}{
		{100, 114, true},
		{90, 100, true},
		{100, 200, false},
		{0, 100, false},
		{100, 0, false},
	}
	for _, c := range cases {
		if got := closePrice(c.a, c.b); got != c.want {
			t.Fatalf("closePrice(%d, %d) = %v, expected %v", c.a, c.b, got, c.want)
		}
	}
}
