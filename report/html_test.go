package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stay_scout/models"
)

func TestWriteHTML(t *testing.T) {
	images := []string{
		"https://a0.muscache.com/im/pictures/1.jpg",
		"https://a0.muscache.com/im/pictures/2.jpg",
		"https://a0.muscache.com/im/pictures/3.jpg",
		"https://a0.muscache.com/im/pictures/4.jpg",
		"https://a0.muscache.com/im/pictures/5.jpg",
	}
	outcome := &models.SearchOutcome{
		Criteria: &models.SearchCriteria{
			Location: "Zermatt",
			CheckIn:  "2026-12-18",
			CheckOut: "2026-12-22",
		},
		Listings: []*models.ListingRecord{
			{
				Platform:      models.PlatformAirbnb,
				Title:         "Chalet Bergblick",
				Subtitle:      "Ganze Unterkunft in Zermatt",
				URL:           "https://www.airbnb.ch/rooms/12345678",
				PricePerNight: intPtr(245),
				Rating:        floatPtr(4.92),
				ReviewCount:   87,
				ImageURLs:     images,
				Analysis: &models.ReviewAnalysis{
					Positive: []string{"Tolle Lage"},
					Summary:  "Rundum gelungen.",
				},
			},
			{
				Platform: models.PlatformBooking,
				Title:    "Apartment am Bahnhof",
				URL:      "https://www.booking.com/hotel/ch/bahnhof.de.html",
			},
		},
		PlatformCounts: map[models.Platform]int{
			models.PlatformAirbnb:  1,
			models.PlatformBooking: 1,
		},
		Price:     models.PriceStats{Min: 245, Max: 245, Mean: 245},
		StartedAt: time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
	}

	path, err := WriteHTML(outcome, t.TempDir())
	if err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	if filepath.Base(path) != "combined_results_20260820_093000.html" {
		t.Fatalf("unexpected filename: %s", filepath.Base(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	html := string(raw)

	for _, want := range []string{
		"Unterkunfts-Vergleichsreport",
		"Zermatt",
		"2026-12-18 - 2026-12-22",
		"Chalet Bergblick",
		"Apartment am Bahnhof",
		`platform-badge airbnb`,
		`platform-badge booking`,
		"Rundum gelungen.",
		"Tolle Lage",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("report missing %q", want)
		}
	}

	// Five or more images render the gallery, a lone image does not.
	if !strings.Contains(html, "image-gallery") || !strings.Contains(html, "1 / 5") {
		t.Fatal("expected an image gallery for the five-image listing")
	}
	if strings.Count(html, "image-gallery\"") > 1 {
		t.Fatal("the imageless listing must not render a gallery")
	}
}

func TestWriteHTMLEscapesContent(t *testing.T) {
	outcome := &models.SearchOutcome{
		Listings: []*models.ListingRecord{
			{
				Platform: models.PlatformAirbnb,
				Title:    `Chalet <script>alert("x")</script>`,
				URL:      "https://www.airbnb.ch/rooms/1",
			},
		},
		StartedAt: time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
	}

	path, err := WriteHTML(outcome, t.TempDir())
	if err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if strings.Contains(string(raw), `<script>alert("x")</script>`) {
		t.Fatal("listing text must be HTML-escaped")
	}
}
