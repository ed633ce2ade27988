package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"stay_scout/config"
	"stay_scout/models"
)

const airbnbBaseURL = "https://www.airbnb.ch"

// Airbnb amenity filter codes. Appending these to the search URL filters
// server-side, which beats substring detection on the detail page.
var airbnbAmenityCodes = map[models.AmenityKey]string{
	models.AmenityPool:      "7",
	models.AmenityWhirlpool: "25",
	models.AmenitySauna:     "325",
	models.AmenityFireplace: "27",
	models.AmenityParking:   "9",
}

type AirbnbHandler struct {
	cfg *config.PlatformConfig
}

func NewAirbnbHandler(cfg *config.PlatformConfig) *AirbnbHandler {
	return &AirbnbHandler{cfg: cfg}
}

func (h *AirbnbHandler) Platform() models.Platform { return models.PlatformAirbnb }

func (h *AirbnbHandler) RatingScale() float64 {
	if h.cfg != nil && h.cfg.RatingScale > 0 {
		return h.cfg.RatingScale
	}
	return 5
}

func (h *AirbnbHandler) CardSelector() string {
	if h.cfg != nil && h.cfg.CardSelector != "" {
		return h.cfg.CardSelector
	}
	return "[itemprop='itemListElement']"
}

func (h *AirbnbHandler) baseURL() string {
	if h.cfg != nil && h.cfg.BaseURL != "" {
		return h.cfg.BaseURL
	}
	return airbnbBaseURL
}

// SearchURL builds the path-style Airbnb search URL. Location goes into the
// path with spaces as "-" and commas as "--"; the entire-place room type is
// always forced so shared rooms never show up.
func (h *AirbnbHandler) SearchURL(c *models.SearchCriteria) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	location := strings.ReplaceAll(c.Location, " ", "-")
	location = strings.ReplaceAll(location, ",", "--")

	var b strings.Builder
	fmt.Fprintf(&b, "%s/s/%s/homes?", h.baseURL(), location)
	fmt.Fprintf(&b, "checkin=%s&checkout=%s", c.CheckIn, c.CheckOut)
	fmt.Fprintf(&b, "&adults=%d", c.Guests)

	if c.MinBedrooms > 0 {
		fmt.Fprintf(&b, "&min_bedrooms=%d", c.MinBedrooms)
	}
	if c.MaxPricePerNight > 0 {
		fmt.Fprintf(&b, "&price_max=%d", c.MaxPricePerNight)
	}

	b.WriteString("&room_types%5B%5D=Entire%20home%2Fapt")

	for _, pref := range c.RequiredAmenities() {
		if code, ok := airbnbAmenityCodes[pref.Key]; ok {
			fmt.Fprintf(&b, "&amenities%%5B%%5D=%s", code)
		}
	}

	return b.String(), nil
}

// PageURL offsets the search URL by Airbnb's 18 cards per result page.
func (h *AirbnbHandler) PageURL(c *models.SearchCriteria, page int) (string, error) {
	base, err := h.SearchURL(c)
	if err != nil {
		return "", err
	}
	if page <= 1 {
		return base, nil
	}
	return fmt.Sprintf("%s&items_offset=%d", base, (page-1)*18), nil
}

func (h *AirbnbHandler) ParseCards(doc *goquery.Document) []models.FieldBag {
	var bags []models.FieldBag

	doc.Find(h.CardSelector()).Each(func(_ int, card *goquery.Selection) {
		bag := models.FieldBag{
			Title:    card.Find("[data-testid='listing-card-title']").First().Text(),
			Subtitle: card.Find("[data-testid='listing-card-subtitle']").First().Text(),
		}

		// Price, rating and review count share the card's text blob; the
		// extractor's patterns pull them apart.
		cardText := card.Text()
		bag.PriceText = cardText
		bag.RatingText = cardText

		card.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(s.Text(), "Superhost") {
				bag.BadgeText = s.Text()
				return false
			}
			return true
		})

		if href, ok := card.Find("a[href*='/rooms/']").First().Attr("href"); ok {
			bag.URL = absoluteURL(h.baseURL(), href)
		}

		card.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			if src, ok := img.Attr("src"); ok && strings.Contains(src, "jpg") {
				bag.ImageURLs = append(bag.ImageURLs, src)
				return false
			}
			if src, ok := img.Attr("data-original-uri"); ok {
				bag.ImageURLs = append(bag.ImageURLs, src)
				return false
			}
			return true
		})

		bags = append(bags, bag)
	})

	return bags
}

func (h *AirbnbHandler) ParseDetail(doc *goquery.Document) models.FieldBag {
	var bag models.FieldBag

	doc.Find("img[src*='pictures']").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			bag.ImageURLs = append(bag.ImageURLs, src)
		}
	})

	doc.Find("[data-review-id], .r1bctolv").Each(func(_ int, rev *goquery.Selection) {
		if text := strings.TrimSpace(rev.Text()); text != "" {
			bag.ReviewBodies = append(bag.ReviewBodies, text)
		}
	})

	bag.Description = doc.Find("[data-section-id='DESCRIPTION_DEFAULT']").Text()

	var amenityParts []string
	doc.Find("[data-section-id='AMENITIES_DEFAULT'] div").Each(func(_ int, div *goquery.Selection) {
		amenityParts = append(amenityParts, strings.ToLower(div.Text()))
	})
	bag.AmenityText = strings.Join(amenityParts, " ")

	return bag
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return base + href
}
