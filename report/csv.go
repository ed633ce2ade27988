package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"stay_scout/models"
)

// csvColumns is the fixed export column set. Order matters, downstream
// spreadsheets key on it.
var csvColumns = []string{
	"platform", "name", "location", "price", "rating",
	"reviews", "url", "distance_km", "image_url",
}

// WriteCSV exports the merged listings, one row each, and returns the file
// path. The file starts with a UTF-8 BOM so Excel reads umlauts correctly.
func WriteCSV(outcome *models.SearchOutcome, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("combined_results_%s.csv", outcome.StartedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return "", err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return "", err
	}

	for _, rec := range outcome.Listings {
		row := []string{
			rec.Platform.DisplayName(),
			rec.Title,
			rec.Subtitle,
			strconv.Itoa(rec.PriceOrZero()),
			formatRating(rec),
			strconv.Itoa(rec.ReviewCount),
			rec.URL,
			formatDistance(rec),
			firstImage(rec),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func formatRating(rec *models.ListingRecord) string {
	return strconv.FormatFloat(rec.RatingOrZero(), 'f', -1, 64)
}

// formatDistance prefers the geocoded driving distance over the
// platform-reported one.
func formatDistance(rec *models.ListingRecord) string {
	return strconv.FormatFloat(effectiveDistance(rec), 'f', -1, 64)
}

func effectiveDistance(rec *models.ListingRecord) float64 {
	if rec.DistanceResolved {
		return rec.DistanceKm
	}
	return rec.RawDistanceKm
}

func firstImage(rec *models.ListingRecord) string {
	if len(rec.ImageURLs) == 0 {
		return ""
	}
	return rec.ImageURLs[0]
}
