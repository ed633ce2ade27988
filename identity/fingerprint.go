package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"stay_scout/models"
)

var (
	// Platforms title the same property differently ("Ferienwohnung
	// Alpenblick" vs "Apartment Alpenblick"); folding lodging nouns to one
	// token keeps their normalized titles comparable. Compounds must come
	// before the nouns they contain ("ferienwohnung" before "wohnung"), the
	// replacements run in order.
	lodgingReplacements = []struct{ from, to string }{
		{"ferienwohnung", "apt"},
		{"appartement", "apt"},
		{"appartment", "apt"},
		{"apartment", "apt"},
		{"wohnung", "apt"},
		{"ferienhaus", "house"},
		{"maison", "house"},
		{"haus", "house"},
		{"chambre", "room"},
		{"zimmer", "room"},
		{"unterkunft", "stay"},
	}
	accentFolder = strings.NewReplacer(
		"ä", "a", "ö", "o", "ü", "u", "ß", "ss",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"à", "a", "â", "a", "î", "i", "ô", "o", "û", "u", "ç", "c",
	)
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint derives a stable identity for a scraped listing from its
// normalized title, platform and subtitle. The platform is part of the
// input, the same property on two platforms keeps two identities.
func Fingerprint(rec *models.ListingRecord) string {
	input := fmt.Sprintf("%s|%s|%s",
		NormalizeTitle(rec.Title),
		rec.Platform,
		NormalizeTitle(rec.Subtitle),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeTitle lowercases, folds accents, strips punctuation and maps
// lodging nouns to canonical tokens.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	title = accentFolder.Replace(title)
	title = nonAlnumRegex.ReplaceAllString(title, " ")
	for _, r := range lodgingReplacements {
		title = strings.ReplaceAll(title, r.from, r.to)
	}
	title = multiSpaceRegex.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// TitleTokens returns the normalized title split into tokens, for overlap
// scoring between candidate duplicates.
func TitleTokens(title string) []string {
	normalized := NormalizeTitle(title)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
