package scraper

import (
	"strings"
	"testing"

	"stay_scout/config"
	"stay_scout/models"
)

var (
	_ Pager = (*AirbnbHandler)(nil)
	_ Pager = (*BookingHandler)(nil)
)

func TestAirbnbSearchURL(t *testing.T) {
	c := testCriteria()
	c.Amenities[0].Required = true // sauna
	c.Amenities[2].Required = true // parking

	h := NewAirbnbHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}

	want := "https://www.airbnb.ch/s/Zermatt/homes?" +
		"checkin=2026-12-18&checkout=2026-12-22&adults=2&min_bedrooms=1&price_max=300" +
		"&room_types%5B%5D=Entire%20home%2Fapt" +
		"&amenities%5B%5D=325&amenities%5B%5D=9"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestAirbnbSearchURLLocationEscaping(t *testing.T) {
	c := testCriteria()
	c.Location = "Saas Fee"

	h := NewAirbnbHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}
	if !strings.HasPrefix(got, "https://www.airbnb.ch/s/Saas-Fee/homes?") {
		t.Fatalf("spaces must become dashes in the path: %s", got)
	}
}

func TestAirbnbSearchURLOmitsZeroFields(t *testing.T) {
	c := testCriteria()
	c.MinBedrooms = 0
	c.MaxPricePerNight = 0

	h := NewAirbnbHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}
	if strings.Contains(got, "min_bedrooms") || strings.Contains(got, "price_max") {
		t.Fatalf("zero bedrooms and price must not appear: %s", got)
	}
	if !strings.Contains(got, "room_types%5B%5D=Entire%20home%2Fapt") {
		t.Fatalf("entire-place room type must always be forced: %s", got)
	}
}

func TestAirbnbSearchURLPreferredAmenitiesStayOut(t *testing.T) {
	c := testCriteria() // all preferences optional

	h := NewAirbnbHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}
	if strings.Contains(got, "amenities") {
		t.Fatalf("preferred-only amenities must not enter the URL: %s", got)
	}
}

func TestAirbnbPageURL(t *testing.T) {
	c := testCriteria()
	h := NewAirbnbHandler(nil)

	base, _ := h.SearchURL(c)
	p1, err := h.PageURL(c, 1)
	if err != nil {
		t.Fatalf("PageURL failed: %v", err)
	}
	if p1 != base {
		t.Fatalf("page 1 must equal the search URL, got %s", p1)
	}
	p3, _ := h.PageURL(c, 3)
	if p3 != base+"&items_offset=36" {
		t.Fatalf("page 3 offset wrong: %s", p3)
	}
}

func TestBookingSearchURL(t *testing.T) {
	c := testCriteria()

	h := NewBookingHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}

	want := "https://www.booking.com/searchresults.de.html?ss=Zermatt" +
		"&checkin=2026-12-18&checkout=2026-12-22&group_adults=2&no_rooms=1&group_children=0" +
		"&price=CHF-0-CHF-300" +
		"&nflt=ht_id%3D201%3Bht_id%3D204%3Bht_id%3D220" +
		"&review_score=80"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBookingReviewScoreRescale(t *testing.T) {
	c := testCriteria()
	c.MinRating[models.PlatformBooking] = 9.2

	h := NewBookingHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}
	if !strings.Contains(got, "review_score=92") {
		t.Fatalf("9.2 on the 10-point scale must map to review_score=92: %s", got)
	}
}

func TestBookingPageURL(t *testing.T) {
	c := testCriteria()
	h := NewBookingHandler(nil)

	base, _ := h.SearchURL(c)
	p2, err := h.PageURL(c, 2)
	if err != nil {
		t.Fatalf("PageURL failed: %v", err)
	}
	if p2 != base+"&offset=25" {
		t.Fatalf("page 2 offset wrong: %s", p2)
	}
}

func TestHotelsComSearchURL(t *testing.T) {
	c := testCriteria()

	h := NewHotelsComHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}

	want := "https://ch.hotels.com/Hotel-Search?destination=Zermatt" +
		"&startDate=2026-12-18&endDate=2026-12-22&rooms=1&adults=2" +
		"&locale=de_CH&pos=HCOM_CH&siteid=300000014&price=300"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestExpediaSearchURL(t *testing.T) {
	c := testCriteria()

	h := NewExpediaHandler(nil)
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}

	want := "https://www.expedia.ch/Hotel-Search?destination=Zermatt" +
		"&startDate=2026-12-18&endDate=2026-12-22&rooms=1&adults=2" +
		"&locale=de_CH&price=300"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSearchURLValidatesCriteria(t *testing.T) {
	c := testCriteria()
	c.Location = ""

	for _, h := range []Handler{
		NewAirbnbHandler(nil), NewBookingHandler(nil),
		NewHotelsComHandler(nil), NewExpediaHandler(nil),
	} {
		if _, err := h.SearchURL(c); err == nil {
			t.Fatalf("%s must reject criteria without a location", h.Platform())
		}
	}
}

func TestBaseURLOverride(t *testing.T) {
	c := testCriteria()

	h := NewAirbnbHandler(&config.PlatformConfig{ID: "airbnb", BaseURL: "https://www.airbnb.com"})
	got, err := h.SearchURL(c)
	if err != nil {
		t.Fatalf("SearchURL failed: %v", err)
	}
	if !strings.HasPrefix(got, "https://www.airbnb.com/s/") {
		t.Fatalf("configured base URL must be honored: %s", got)
	}
}
