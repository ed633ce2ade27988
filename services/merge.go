package services

import (
	"math"
	"sort"

	"stay_scout/models"
)

// Combine folds per-platform result lists into one comparison list.
// Listings keep their platform tag and are ordered by price ascending with
// the unpriced ones last; equal prices keep platform submission order. The
// same property appearing on two platforms stays twice, price comparison
// across platforms is the point.
func Combine(perPlatform map[models.Platform][]*models.ListingRecord) ([]*models.ListingRecord, map[models.Platform]int) {
	counts := make(map[models.Platform]int, len(perPlatform))

	total := 0
	for _, listings := range perPlatform {
		total += len(listings)
	}
	combined := make([]*models.ListingRecord, 0, total)

	// Deterministic platform order so equal-price ordering is reproducible.
	for _, p := range models.AllPlatforms {
		listings := perPlatform[p]
		if len(listings) == 0 {
			continue
		}
		counts[p] = len(listings)
		combined = append(combined, listings...)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		a, b := combined[i].PriceOrZero(), combined[j].PriceOrZero()
		if (a == 0) != (b == 0) {
			return b == 0
		}
		return a < b
	})

	return combined, counts
}

// PriceSummary computes min, max and mean over the listings that carry a
// price. Unpriced listings are excluded rather than counted as zero.
func PriceSummary(listings []*models.ListingRecord) models.PriceStats {
	var stats models.PriceStats

	sum, n := 0, 0
	for _, l := range listings {
		if l.PricePerNight == nil {
			continue
		}
		price := *l.PricePerNight
		if n == 0 || price < stats.Min {
			stats.Min = price
		}
		if n == 0 || price > stats.Max {
			stats.Max = price
		}
		sum += price
		n++
	}
	if n > 0 {
		stats.Mean = math.Round(float64(sum)/float64(n)*100) / 100
	}

	return stats
}
