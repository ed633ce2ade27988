package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"stay_scout/identity"
	"stay_scout/models"
	"stay_scout/storage"
)

// MatchService flags probable cross-platform duplicates in a merged result
// set. It only records matches, the merged list itself is never deduplicated
// or reordered.
type MatchService struct {
	store *storage.PostgresStore
}

// NewMatchService creates a new MatchService
func NewMatchService(store *storage.PostgresStore) *MatchService {
	return &MatchService{store: store}
}

// FlagDuplicates scores every cross-platform pair in the run and records the
// plausible ones. archiveIDs maps each record to its archived listing id.
func (s *MatchService) FlagDuplicates(ctx context.Context, searchID uuid.UUID, listings []*models.ListingRecord, archiveIDs map[*models.ListingRecord]uuid.UUID) (int, error) {
	inserted := 0
	now := time.Now()

	for i := 0; i < len(listings); i++ {
		for j := i + 1; j < len(listings); j++ {
			a, b := listings[i], listings[j]
			if a.Platform == b.Platform {
				continue
			}

			confidence, reasons, ok := scoreDuplicate(a, b)
			if !ok {
				continue
			}

			idA, okA := archiveIDs[a]
			idB, okB := archiveIDs[b]
			if !okA || !okB {
				continue
			}

			reasonsJSON, _ := json.Marshal(reasons)
			match := &models.ListingMatch{
				SearchID:     searchID,
				ListingA:     idA,
				ListingB:     idB,
				Confidence:   float32(confidence),
				MatchReasons: reasonsJSON,
				CreatedAt:    now,
			}

			if err := s.store.InsertListingMatch(ctx, match); err != nil {
				return inserted, err
			}
			inserted++
		}
	}

	if inserted > 0 {
		log.Printf("Match: flagged %d potential cross-platform duplicates", inserted)
	}
	return inserted, nil
}

// scoreDuplicate calculates a confidence score for a candidate pair. A strong
// title signal plus supporting attributes is required; weak pairs need close
// price and two supporting attributes.
func scoreDuplicate(a, b *models.ListingRecord) (float64, []string, bool) {
	reasons := []string{}
	strongTitle := false
	sameTitle := false

	normA := identity.NormalizeTitle(a.Title)
	normB := identity.NormalizeTitle(b.Title)
	if normA != "" && normA == normB {
		reasons = append(reasons, "same_title")
		strongTitle = true
		sameTitle = true
	} else if titleOverlap(a.Title, b.Title) >= 0.6 {
		reasons = append(reasons, "similar_title")
		strongTitle = true
	}

	closeAttrCount := 0
	if closePrice(a.PriceOrZero(), b.PriceOrZero()) {
		reasons = append(reasons, "close_price")
		closeAttrCount++
	}
	if a.Rating != nil && b.Rating != nil && absFloat(*a.Rating-*b.Rating) <= 0.3 {
		reasons = append(reasons, "close_rating")
		closeAttrCount++
	}
	if a.DistanceResolved && b.DistanceResolved && absFloat(a.DistanceKm-b.DistanceKm) <= 1.0 {
		reasons = append(reasons, "close_distance")
		closeAttrCount++
	}

	if !strongTitle {
		if !(closePrice(a.PriceOrZero(), b.PriceOrZero()) && closeAttrCount >= 2) {
			return 0, nil, false
		}
		confidence := 0.55 + 0.05*float64(closeAttrCount)
		if confidence > 0.85 {
			confidence = 0.85
		}
		return confidence, reasons, true
	}

	confidence := 0.75
	if sameTitle {
		confidence = 0.9
	}
	confidence += 0.03 * float64(closeAttrCount)
	if confidence > 0.95 {
		confidence = 0.95
	}

	return confidence, reasons, true
}

// titleOverlap measures shared normalized tokens against the smaller title.
func titleOverlap(a, b string) float64 {
	tokensA := identity.TitleTokens(a)
	tokensB := identity.TitleTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	set := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		set[t] = true
	}
	shared := 0
	for _, t := range tokensB {
		if set[t] {
			shared++
		}
	}

	smaller := len(tokensA)
	if len(tokensB) < smaller {
		smaller = len(tokensB)
	}
	return float64(shared) / float64(smaller)
}

func closePrice(a, b int) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	maxVal := a
	if b > maxVal {
		maxVal = b
	}
	return float64(diff) <= 0.15*float64(maxVal)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
