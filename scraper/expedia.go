package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"stay_scout/config"
	"stay_scout/models"
)

const expediaBaseURL = "https://www.expedia.ch"

// Expedia shares the Hotels.com result markup (same Expedia-group frontend);
// only the host and point-of-sale parameters differ.
type ExpediaHandler struct {
	cfg *config.PlatformConfig
}

func NewExpediaHandler(cfg *config.PlatformConfig) *ExpediaHandler {
	return &ExpediaHandler{cfg: cfg}
}

func (h *ExpediaHandler) Platform() models.Platform { return models.PlatformExpedia }

func (h *ExpediaHandler) RatingScale() float64 {
	if h.cfg != nil && h.cfg.RatingScale > 0 {
		return h.cfg.RatingScale
	}
	return 10
}

func (h *ExpediaHandler) CardSelector() string {
	if h.cfg != nil && h.cfg.CardSelector != "" {
		return h.cfg.CardSelector
	}
	return lodgingCardSelectors[0]
}

func (h *ExpediaHandler) baseURL() string {
	if h.cfg != nil && h.cfg.BaseURL != "" {
		return h.cfg.BaseURL
	}
	return expediaBaseURL
}

func (h *ExpediaHandler) SearchURL(c *models.SearchCriteria) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/Hotel-Search?destination=%s", h.baseURL(), url.QueryEscape(c.Location))
	fmt.Fprintf(&b, "&startDate=%s&endDate=%s", c.CheckIn, c.CheckOut)
	fmt.Fprintf(&b, "&rooms=1&adults=%d", c.Guests)
	b.WriteString("&locale=de_CH")

	if c.MaxPricePerNight > 0 {
		fmt.Fprintf(&b, "&price=%d", c.MaxPricePerNight)
	}

	return b.String(), nil
}

func (h *ExpediaHandler) ParseCards(doc *goquery.Document) []models.FieldBag {
	return parseLodgingCards(doc, h.baseURL(), h.CardSelector())
}

func (h *ExpediaHandler) ParseDetail(doc *goquery.Document) models.FieldBag {
	return parseLodgingDetail(doc)
}
