package scraper

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"stay_scout/config"
	"stay_scout/models"
)

const bookingBaseURL = "https://www.booking.com"

// Property-type filter for apartments, holiday homes and chalets. Keeping
// this fixed is how "entire place" is forced on Booking.
const bookingEntirePlaceFilter = "nflt=ht_id%3D201%3Bht_id%3D204%3Bht_id%3D220"

type BookingHandler struct {
	cfg *config.PlatformConfig
}

func NewBookingHandler(cfg *config.PlatformConfig) *BookingHandler {
	return &BookingHandler{cfg: cfg}
}

func (h *BookingHandler) Platform() models.Platform { return models.PlatformBooking }

func (h *BookingHandler) RatingScale() float64 {
	if h.cfg != nil && h.cfg.RatingScale > 0 {
		return h.cfg.RatingScale
	}
	return 10
}

func (h *BookingHandler) CardSelector() string {
	if h.cfg != nil && h.cfg.CardSelector != "" {
		return h.cfg.CardSelector
	}
	return "[data-testid='property-card']"
}

func (h *BookingHandler) baseURL() string {
	if h.cfg != nil && h.cfg.BaseURL != "" {
		return h.cfg.BaseURL
	}
	return bookingBaseURL
}

// SearchURL builds the Booking search URL. The minimum rating is rescaled to
// Booking's 0-100 review score (a 4.6 on the 5-point scale becomes 92).
func (h *BookingHandler) SearchURL(c *models.SearchCriteria) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/searchresults.de.html?ss=%s", h.baseURL(), url.QueryEscape(c.Location))
	fmt.Fprintf(&b, "&checkin=%s&checkout=%s", c.CheckIn, c.CheckOut)
	fmt.Fprintf(&b, "&group_adults=%d&no_rooms=1&group_children=0", c.Guests)

	if c.MaxPricePerNight > 0 {
		fmt.Fprintf(&b, "&price=CHF-0-CHF-%d", c.MaxPricePerNight)
	}

	b.WriteString("&" + bookingEntirePlaceFilter)

	if min5 := c.MinRatingNormalized(models.PlatformBooking, h.RatingScale()); min5 > 0 {
		score := int(math.Round(min5 * 2 * 10))
		fmt.Fprintf(&b, "&review_score=%d", score)
	}

	return b.String(), nil
}

// PageURL offsets the search URL by Booking's 25 cards per result page.
func (h *BookingHandler) PageURL(c *models.SearchCriteria, page int) (string, error) {
	base, err := h.SearchURL(c)
	if err != nil {
		return "", err
	}
	if page <= 1 {
		return base, nil
	}
	return fmt.Sprintf("%s&offset=%d", base, (page-1)*25), nil
}

func (h *BookingHandler) ParseCards(doc *goquery.Document) []models.FieldBag {
	var bags []models.FieldBag

	doc.Find(h.CardSelector()).Each(func(_ int, card *goquery.Selection) {
		bag := models.FieldBag{
			Title:        card.Find("[data-testid='title']").First().Text(),
			Subtitle:     card.Find("[data-testid='address']").First().Text(),
			DistanceText: card.Find("[data-testid='distance']").First().Text(),
			PriceText:    card.Find("[data-testid='price-and-discounted-price']").First().Text(),
			RatingText:   card.Find("[data-testid='review-score'] div").First().Text(),
			ReviewsText:  card.Find("[data-testid='review-score'] div:nth-child(2)").Text(),
		}
		if bag.Subtitle == "" {
			bag.Subtitle = bag.DistanceText
		}

		if href, ok := card.Find("a[data-testid='title-link']").First().Attr("href"); ok {
			bag.URL = absoluteURL(h.baseURL(), href)
		}

		card.Find("img[data-testid='image']").Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok {
				bag.ImageURLs = append(bag.ImageURLs, src)
			}
		})

		bags = append(bags, bag)
	})

	return bags
}

// Booking detail pages are not fetched for amenities; the card already carries
// everything the pipeline filters on, so the detail bag only collects the
// photo grid and review list when the orchestrator does visit one.
func (h *BookingHandler) ParseDetail(doc *goquery.Document) models.FieldBag {
	var bag models.FieldBag

	doc.Find("img[data-testid='image'], a[data-testid='gallery-image'] img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			bag.ImageURLs = append(bag.ImageURLs, src)
		}
	})

	doc.Find("[data-testid='review-card'], .review_list_new_item_block").Each(func(_ int, rev *goquery.Selection) {
		if text := strings.TrimSpace(rev.Text()); text != "" {
			bag.ReviewBodies = append(bag.ReviewBodies, text)
		}
	})

	bag.Description = doc.Find("[data-testid='property-description']").Text()

	var facilityParts []string
	doc.Find("[data-testid='facility-group-container'] li").Each(func(_ int, li *goquery.Selection) {
		facilityParts = append(facilityParts, strings.ToLower(li.Text()))
	})
	bag.AmenityText = strings.Join(facilityParts, " ")

	return bag
}
