package services

import (
	"context"
	"encoding/json"
	"fmt"

	"stay_scout/models"
	"stay_scout/storage"
)

// FavoritesService manages saved listings grouped into named lists, plus the
// per-favorite review analysis cache.
type FavoritesService struct {
	store    *storage.SQLiteStore
	analyzer *ReviewAnalyzer
}

func NewFavoritesService(store *storage.SQLiteStore, analyzer *ReviewAnalyzer) *FavoritesService {
	return &FavoritesService{
		store:    store,
		analyzer: analyzer,
	}
}

// Add saves a listing into a named list. The full record is stored as JSON so
// a favorite survives the listing disappearing from search results.
func (s *FavoritesService) Add(listName, location string, rec *models.ListingRecord) (*models.Favorite, error) {
	if listName == "" {
		listName = "default"
	}
	if rec == nil || rec.URL == "" {
		return nil, fmt.Errorf("favorite needs a listing with a URL")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	id, err := s.store.AddFavorite(listName, location, payload)
	if err != nil {
		return nil, err
	}
	return s.store.GetFavorite(id)
}

func (s *FavoritesService) List(listName string) ([]models.Favorite, error) {
	return s.store.GetFavorites(listName)
}

// Get returns one favorite, or nil when the id is unknown.
func (s *FavoritesService) Get(id int64) (*models.Favorite, error) {
	return s.store.GetFavorite(id)
}

func (s *FavoritesService) Lists() ([]string, error) {
	return s.store.GetFavoriteLists()
}

func (s *FavoritesService) RenameList(oldName, newName string) (int64, error) {
	if oldName == "" || newName == "" {
		return 0, fmt.Errorf("both list names are required")
	}
	return s.store.RenameFavoriteList(oldName, newName)
}

func (s *FavoritesService) Delete(id int64) error {
	return s.store.DeleteFavorite(id)
}

// FavoriteAnalysis pairs one favorite with its review analysis.
type FavoriteAnalysis struct {
	FavoriteID int64                  `json:"favorite_id"`
	Title      string                 `json:"title"`
	Analysis   *models.ReviewAnalysis `json:"analysis"`
	Cached     bool                   `json:"cached"`
}

// Analyze returns the cached review analysis for a favorite, running the
// analyzer once on first request. Favorites without review snippets get the
// analyzer's empty-reviews placeholder, cached like any other result.
func (s *FavoritesService) Analyze(ctx context.Context, favoriteID int64) (*models.ReviewAnalysis, error) {
	fav, err := s.store.GetFavorite(favoriteID)
	if err != nil {
		return nil, err
	}
	if fav == nil {
		return nil, fmt.Errorf("favorite %d not found", favoriteID)
	}
	analysis, _, err := s.analyzeOne(ctx, fav)
	return analysis, err
}

// AnalyzeBatch analyzes several favorites in one call. Unknown ids are
// skipped rather than failing the batch.
func (s *FavoritesService) AnalyzeBatch(ctx context.Context, favoriteIDs []int64) ([]FavoriteAnalysis, error) {
	results := make([]FavoriteAnalysis, 0, len(favoriteIDs))
	for _, id := range favoriteIDs {
		fav, err := s.store.GetFavorite(id)
		if err != nil {
			return nil, err
		}
		if fav == nil {
			continue
		}

		analysis, cached, err := s.analyzeOne(ctx, fav)
		if err != nil {
			return nil, err
		}

		var rec models.ListingRecord
		_ = json.Unmarshal(fav.Listing, &rec)

		results = append(results, FavoriteAnalysis{
			FavoriteID: fav.ID,
			Title:      rec.Title,
			Analysis:   analysis,
			Cached:     cached,
		})
	}
	return results, nil
}

func (s *FavoritesService) analyzeOne(ctx context.Context, fav *models.Favorite) (*models.ReviewAnalysis, bool, error) {
	cached, err := s.store.GetAnalysis(fav.ID)
	if err != nil {
		return nil, false, err
	}
	if cached != nil {
		return cached, true, nil
	}

	var rec models.ListingRecord
	if err := json.Unmarshal(fav.Listing, &rec); err != nil {
		return nil, false, fmt.Errorf("stored listing payload: %w", err)
	}

	analysis := s.analyzer.AnalyzeReviews(ctx, rec.Title, rec.Reviews)
	if err := s.store.SaveAnalysis(fav.ID, analysis); err != nil {
		return nil, false, err
	}
	return analysis, false, nil
}
