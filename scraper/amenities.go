package scraper

import "strings"

// AmenityDetector decides whether any synonym for an amenity appears in the
// page text. Kept as a capability so a structured-amenity detector can replace
// the substring heuristic per platform without touching callers.
type AmenityDetector func(haystack string, synonyms []string) bool

// SubstringAmenityDetector does a case-insensitive substring scan, first hit
// wins. haystack is expected lowercased by the caller; synonyms are lowered
// here. Locale-sensitive: synonym lists must cover the site's languages.
func SubstringAmenityDetector(haystack string, synonyms []string) bool {
	for _, term := range synonyms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
