package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stay_scout/models"
)

const (
	maxImages     = 20
	maxReviews    = 30
	minReviewLen  = 20
	minReviewHits = 3
	minImageWidth = 400
)

// Price appears as "CHF 150", "CHF 1'500" or "150 CHF" depending on platform
// and locale. Apostrophes are stripped before matching.
var (
	pricePrefixRe = regexp.MustCompile(`CHF\s*(\d[\d\s]*\d|\d+)`)
	priceSuffixRe = regexp.MustCompile(`(\d[\d\s]*\d|\d+)\s*CHF`)

	ratingParenRe = regexp.MustCompile(`(\d[.,]\d{1,2})\s*\(`)
	ratingStarRe  = regexp.MustCompile(`[★⭐]\s*(\d[.,]\d{1,2})`)
	ratingBareRe  = regexp.MustCompile(`(\d+[.,]\d{1,2})`)

	reviewsParenRe = regexp.MustCompile(`\((\d+)\)`)
	reviewsDeRe    = regexp.MustCompile(`(\d+)\s*Bewertung`)
	reviewsEnRe    = regexp.MustCompile(`(\d+)\s*review`)

	distanceKmRe = regexp.MustCompile(`(\d+[.,]?\d*)\s*km`)
	imageWidthRe = regexp.MustCompile(`im_w_(\d+)`)
)

// superhostTokens mark a verified-host badge across platforms.
var superhostTokens = []string{"superhost", "vip access"}

// BuildRecord turns one card's field bag into a normalized record. Every field
// gets a typed default; only a missing title or URL drops the candidate.
func BuildRecord(bag models.FieldBag, platform models.Platform, scale float64, c *models.SearchCriteria) (*models.ListingRecord, bool) {
	title := strings.TrimSpace(bag.Title)
	if title == "" || strings.TrimSpace(bag.URL) == "" {
		return nil, false
	}

	r := &models.ListingRecord{
		Platform:  platform,
		Title:     title,
		Subtitle:  strings.TrimSpace(bag.Subtitle),
		URL:       strings.TrimSpace(bag.URL),
		ImageURLs: CollectImages(nil, bag.ImageURLs),
		ScrapedAt: time.Now().UTC(),
	}

	r.PricePerNight = ParsePrice(bag.PriceText)
	applyTotalPriceHeuristic(r, c)

	r.Rating = ParseRating(bag.RatingText, scale)
	r.ReviewCount = ParseReviewCount(cardText(bag.ReviewsText, bag.RatingText))
	r.Superhost = hasSuperhostBadge(bag.BadgeText)
	r.RawDistanceKm = ParseDistanceKm(cardText(bag.DistanceText, bag.Subtitle))

	return r, true
}

// EnrichRecord folds a detail page's bag into an existing record: amenities,
// description, review snippets and the full image gallery.
func EnrichRecord(r *models.ListingRecord, bag models.FieldBag, c *models.SearchCriteria, detect AmenityDetector) {
	if desc := strings.TrimSpace(bag.Description); desc != "" {
		r.Description = desc
	}
	if len(bag.ImageURLs) > 0 {
		r.ImageURLs = CollectImages(r.ImageURLs, bag.ImageURLs)
	}
	r.Reviews = ReviewSnippets(bag.ReviewBodies)

	if c == nil || len(c.Amenities) == 0 {
		return
	}
	haystack := strings.ToLower(bag.AmenityText + " " + r.Description)
	for _, pref := range c.Amenities {
		if len(pref.SearchTerms) == 0 {
			continue
		}
		if detect(haystack, pref.SearchTerms) {
			r.SetAmenity(pref.Key, true)
		}
	}
}

// ParsePrice extracts the first CHF amount from text. Returns nil when no
// amount is found, which downstream treats as price-unknown.
func ParsePrice(text string) *int {
	cleaned := strings.NewReplacer("'", "", "’", "").Replace(text)
	for _, re := range []*regexp.Regexp{pricePrefixRe, priceSuffixRe} {
		m := re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		digits := strings.ReplaceAll(m[1], " ", "")
		v, err := strconv.Atoi(digits)
		if err != nil || v <= 0 {
			continue
		}
		return &v
	}
	return nil
}

// applyTotalPriceHeuristic reinterprets a suspiciously high nightly price as a
// stay total. A figure above twice the configured ceiling is assumed to cover
// the whole stay and is divided by the night count. This is a guess the
// platform never confirms; a genuinely expensive nightly rate can be
// misclassified.
func applyTotalPriceHeuristic(r *models.ListingRecord, c *models.SearchCriteria) {
	if r.PricePerNight == nil || c == nil || c.MaxPricePerNight <= 0 {
		return
	}
	nights := c.Nights()
	if nights <= 0 {
		return
	}
	raw := *r.PricePerNight
	if raw > c.MaxPricePerNight*2 {
		perNight := int(math.Round(float64(raw) / float64(nights)))
		r.TotalPrice = &raw
		r.PricePerNight = &perNight
	}
}

// ParseRating extracts the first rating-like decimal and normalizes it to the
// 0-5 scale. scale is the platform's native scale (5 or 10). Returns nil when
// nothing rating-like is present or the value is out of range.
func ParseRating(text string, scale float64) *float64 {
	if scale <= 0 {
		scale = 5
	}
	for _, re := range []*regexp.Regexp{ratingParenRe, ratingStarRe, ratingBareRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil || raw <= 0 || raw > scale {
			continue
		}
		normalized := math.Round(raw/(scale/5)*100) / 100
		return &normalized
	}
	return nil
}

// ParseReviewCount extracts a review count from "(123)", "123 Bewertungen" or
// "123 reviews". Defaults to 0.
func ParseReviewCount(text string) int {
	for _, re := range []*regexp.Regexp{reviewsParenRe, reviewsDeRe, reviewsEnRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

// ParseDistanceKm extracts a platform-reported distance like "2,3 km vom
// Zentrum". Defaults to 0 (unknown).
func ParseDistanceKm(text string) float64 {
	m := distanceKmRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func hasSuperhostBadge(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range superhostTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// CollectImages merges candidate URLs into existing, skipping platform asset
// icons and sub-400px thumbnails, upgrading known low-res tokens to their
// high-res variants, deduplicating by final URL and capping at 20 in
// first-seen order.
func CollectImages(existing []string, candidates []string) []string {
	out := make([]string, 0, len(existing)+len(candidates))
	seen := make(map[string]bool, len(existing)+len(candidates))
	for _, u := range existing {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, u := range candidates {
		if len(out) >= maxImages {
			break
		}
		u = strings.TrimSpace(u)
		if u == "" || strings.HasPrefix(u, "data:") {
			continue
		}
		if strings.Contains(u, "airbnb-platform-assets") || strings.Contains(u, "AirbnbPlatformAssets") {
			continue
		}
		if m := imageWidthRe.FindStringSubmatch(u); m != nil {
			if w, err := strconv.Atoi(m[1]); err == nil && w < minImageWidth {
				continue
			}
		}
		u = upgradeImageURL(u)
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	if len(out) > maxImages {
		out = out[:maxImages]
	}
	return out
}

var imageUpgrader = strings.NewReplacer(
	"im_w_720", "im_w_1200",
	"im_w_480", "im_w_1200",
	"square60", "max1024x768",
	"square240", "max1024x768",
	"t_70x70", "t_1000x1000",
	"t_200x200", "t_1000x1000",
)

func upgradeImageURL(u string) string {
	return imageUpgrader.Replace(u)
}

// ReviewSnippets keeps up to 30 review bodies long enough to be informative.
// Fewer than 3 usable reviews means the batch carries no signal and is
// discarded entirely.
func ReviewSnippets(bodies []string) []string {
	if len(bodies) > maxReviews {
		bodies = bodies[:maxReviews]
	}
	var usable []string
	for _, b := range bodies {
		b = strings.TrimSpace(b)
		if len(b) > minReviewLen {
			usable = append(usable, b)
		}
	}
	if len(usable) < minReviewHits {
		return nil
	}
	return usable
}

// cardText returns primary unless it is empty, falling back to secondary.
// Platform cards do not always separate price/rating/review regions.
func cardText(primary, secondary string) string {
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return secondary
}
