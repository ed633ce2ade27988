package scraper

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"stay_scout/config"
	"stay_scout/models"
)

// Handler is one platform's markup adapter. It builds the search URL and maps
// rendered documents to field bags; everything downstream of the bag is shared.
type Handler interface {
	Platform() models.Platform
	// RatingScale is the platform's native rating scale (5 or 10 point).
	RatingScale() float64
	// SearchURL builds the platform search URL. Pure function, no I/O.
	SearchURL(c *models.SearchCriteria) (string, error)
	// CardSelector is the selector the fetcher waits for before parsing.
	CardSelector() string
	ParseCards(doc *goquery.Document) []models.FieldBag
	ParseDetail(doc *goquery.Document) models.FieldBag
}

// Pager is the optional handler capability for result pages addressable by
// URL. The Expedia-group sites lazy-load further results under the same URL,
// so only Airbnb and Booking implement it.
type Pager interface {
	// PageURL builds the URL of result page n (1-based). Page 1 equals
	// SearchURL.
	PageURL(c *models.SearchCriteria, page int) (string, error)
}

func NewHandler(cfg *config.PlatformConfig) (Handler, error) {
	switch cfg.ID {
	case string(models.PlatformAirbnb):
		return NewAirbnbHandler(cfg), nil
	case string(models.PlatformBooking):
		return NewBookingHandler(cfg), nil
	case string(models.PlatformHotelsCom):
		return NewHotelsComHandler(cfg), nil
	case string(models.PlatformExpedia):
		return NewExpediaHandler(cfg), nil
	default:
		return nil, fmt.Errorf("unknown platform: %s", cfg.ID)
	}
}
