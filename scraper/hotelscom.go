package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"stay_scout/config"
	"stay_scout/models"
)

const hotelsComBaseURL = "https://ch.hotels.com"

// Expedia-group result pages rename their card container frequently; try the
// known variants in order and use the first that yields cards.
var lodgingCardSelectors = []string{
	"div[data-stid='lodging-card-responsive']",
	"div[class*='uitk-card']",
	"article",
	"div[data-testid='property-card']",
}

type HotelsComHandler struct {
	cfg *config.PlatformConfig
}

func NewHotelsComHandler(cfg *config.PlatformConfig) *HotelsComHandler {
	return &HotelsComHandler{cfg: cfg}
}

func (h *HotelsComHandler) Platform() models.Platform { return models.PlatformHotelsCom }

func (h *HotelsComHandler) RatingScale() float64 {
	if h.cfg != nil && h.cfg.RatingScale > 0 {
		return h.cfg.RatingScale
	}
	return 10
}

func (h *HotelsComHandler) CardSelector() string {
	if h.cfg != nil && h.cfg.CardSelector != "" {
		return h.cfg.CardSelector
	}
	return lodgingCardSelectors[0]
}

func (h *HotelsComHandler) baseURL() string {
	if h.cfg != nil && h.cfg.BaseURL != "" {
		return h.cfg.BaseURL
	}
	return hotelsComBaseURL
}

func (h *HotelsComHandler) SearchURL(c *models.SearchCriteria) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/Hotel-Search?destination=%s", h.baseURL(), url.QueryEscape(c.Location))
	fmt.Fprintf(&b, "&startDate=%s&endDate=%s", c.CheckIn, c.CheckOut)
	fmt.Fprintf(&b, "&rooms=1&adults=%d", c.Guests)
	b.WriteString("&locale=de_CH&pos=HCOM_CH&siteid=300000014")

	if c.MaxPricePerNight > 0 {
		fmt.Fprintf(&b, "&price=%d", c.MaxPricePerNight)
	}

	return b.String(), nil
}

func (h *HotelsComHandler) ParseCards(doc *goquery.Document) []models.FieldBag {
	return parseLodgingCards(doc, h.baseURL(), h.CardSelector())
}

func (h *HotelsComHandler) ParseDetail(doc *goquery.Document) models.FieldBag {
	return parseLodgingDetail(doc)
}

func parseLodgingCards(doc *goquery.Document, baseURL, primarySelector string) []models.FieldBag {
	selectors := lodgingCardSelectors
	if primarySelector != "" && primarySelector != selectors[0] {
		selectors = append([]string{primarySelector}, selectors...)
	}

	var cards *goquery.Selection
	for _, sel := range selectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var bags []models.FieldBag
	cards.Each(func(_ int, card *goquery.Selection) {
		bag := models.FieldBag{
			Title:       card.Find("[data-stid='content-hotel-title']").First().Text(),
			PriceText:   card.Find("[data-stid='price-display-field']").First().Text(),
			RatingText:  card.Find("[data-stid='review-rating']").First().Text(),
			ReviewsText: card.Find("[data-stid='review-text']").First().Text(),
			BadgeText:   card.Find("[data-stid='vip-badge']").First().Text(),
			Subtitle:    card.Find("[data-stid='content-hotel-neighborhood']").First().Text(),
		}

		if href, ok := card.Find("a").First().Attr("href"); ok {
			bag.URL = absoluteURL(baseURL, href)
		}

		card.Find("img").Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if ok && strings.Contains(src, "images") {
				bag.ImageURLs = append(bag.ImageURLs, src)
			}
		})

		bags = append(bags, bag)
	})

	return bags
}

func parseLodgingDetail(doc *goquery.Document) models.FieldBag {
	var bag models.FieldBag

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && strings.Contains(src, "images") {
			bag.ImageURLs = append(bag.ImageURLs, src)
		}
	})

	doc.Find("[data-stid='property-reviews'] [itemprop='review'], section[data-stid='reviews'] article").Each(func(_ int, rev *goquery.Selection) {
		if text := strings.TrimSpace(rev.Text()); text != "" {
			bag.ReviewBodies = append(bag.ReviewBodies, text)
		}
	})

	bag.Description = doc.Find("[data-stid='content-markup']").Text()

	var amenityParts []string
	doc.Find("[data-stid='property-amenities'] li, div[data-stid='amenities'] li").Each(func(_ int, li *goquery.Selection) {
		amenityParts = append(amenityParts, strings.ToLower(li.Text()))
	})
	bag.AmenityText = strings.Join(amenityParts, " ")

	return bag
}
