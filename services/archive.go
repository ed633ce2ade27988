package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"stay_scout/identity"
	"stay_scout/models"
	"stay_scout/storage"
)

// ArchiveService persists a finished search run to postgres: the run row,
// every accepted listing, the image queue and duplicate flags. The archive is
// optional; without a configured store the pipeline runs unchanged.
type ArchiveService struct {
	store *storage.PostgresStore
	match *MatchService
}

// NewArchiveService creates a new ArchiveService
func NewArchiveService(store *storage.PostgresStore, match *MatchService) *ArchiveService {
	return &ArchiveService{
		store: store,
		match: match,
	}
}

// ArchiveResult contains the outcome of archiving a search run
type ArchiveResult struct {
	ListingsArchived int
	MatchesFlagged   int
	ImagesQueued     int
}

// ArchiveOutcome writes one search outcome to the archive. Safe to call with
// a nil service. Image and match failures are logged, not fatal; the run row
// and listings are the part that must succeed.
func (s *ArchiveService) ArchiveOutcome(ctx context.Context, outcome *models.SearchOutcome) (*ArchiveResult, error) {
	if s == nil || s.store == nil {
		return &ArchiveResult{}, nil
	}

	result := &ArchiveResult{}

	// 1. Run row first, listings reference it
	if err := s.store.InsertSearchRun(ctx, outcome); err != nil {
		return nil, fmt.Errorf("insert search run: %w", err)
	}

	// 2. Archive each accepted listing and queue its images
	archiveIDs := make(map[*models.ListingRecord]uuid.UUID, len(outcome.Listings))
	for _, rec := range outcome.Listings {
		fingerprint := identity.Fingerprint(rec)

		id, err := s.store.InsertListing(ctx, outcome.ID, fingerprint, rec)
		if err != nil {
			return result, fmt.Errorf("insert listing %q: %w", rec.Title, err)
		}
		archiveIDs[rec] = id
		result.ListingsArchived++

		for _, imgURL := range rec.ImageURLs {
			if err := s.store.EnqueueImage(ctx, id, imgURL); err != nil {
				log.Printf("Warning: failed to queue image for %q: %v", rec.Title, err)
				continue
			}
			result.ImagesQueued++
		}
	}

	// 3. Flag probable duplicates across platforms
	if s.match != nil {
		flagged, err := s.match.FlagDuplicates(ctx, outcome.ID, outcome.Listings, archiveIDs)
		if err != nil {
			log.Printf("Warning: duplicate flagging failed: %v", err)
		}
		result.MatchesFlagged = flagged
	}

	log.Printf("Archive: %d listings, %d images queued, %d duplicates flagged",
		result.ListingsArchived, result.ImagesQueued, result.MatchesFlagged)

	return result, nil
}
