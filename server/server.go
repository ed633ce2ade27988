package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"stay_scout/config"
	"stay_scout/models"
	"stay_scout/scraper"
	"stay_scout/services"
)

// Server exposes the search pipeline and favorites over a JSON API.
type Server struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	favorites    *services.FavoritesService

	mu   sync.RWMutex
	jobs map[string]*models.SearchJob

	// The browser fetcher handles one search at a time, API-triggered
	// searches queue behind this lock.
	searchMu sync.Mutex

	httpServer *http.Server
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator, favorites *services.FavoritesService) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		favorites:    favorites,
		jobs:         make(map[string]*models.SearchJob),
	}
}

// routes builds the API handler. Kept apart from Start so tests can exercise
// the endpoints without a listener.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/search", s.handleStartSearch)
	mux.HandleFunc("GET /api/search/{id}", s.handleSearchStatus)
	mux.HandleFunc("GET /results/{filename}", s.handleResultsFile)

	mux.HandleFunc("POST /api/favorites", s.handleAddFavorite)
	mux.HandleFunc("GET /api/favorites", s.handleGetFavorites)
	mux.HandleFunc("GET /api/favorites/lists", s.handleGetLists)
	mux.HandleFunc("PUT /api/favorites/lists/rename", s.handleRenameList)
	mux.HandleFunc("DELETE /api/favorites/{id}", s.handleDeleteFavorite)
	mux.HandleFunc("POST /api/favorites/analyze", s.handleAnalyzeFavorites)

	return withCORS(mux)
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("API listening on %s", s.cfg.ListenAddr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// withCORS allows browser frontends on other origins to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "stay_scout API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"search":    "POST /api/search",
			"status":    "GET /api/search/{id}",
			"results":   "GET /results/{filename}",
			"favorites": "GET /api/favorites",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ========================================
// SEARCH
// ========================================

func (s *Server) handleStartSearch(w http.ResponseWriter, r *http.Request) {
	var criteria models.SearchCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.applyDefaults(&criteria)

	if err := criteria.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := uuid.New().String()[:8]
	job := &models.SearchJob{
		ID:        jobID,
		Status:    models.JobStatusQueued,
		Progress:  "In Warteschlange...",
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.jobs[jobID] = job
	s.mu.Unlock()

	go s.runSearch(jobID, &criteria)

	writeJSON(w, http.StatusOK, map[string]string{
		"search_id": jobID,
		"status":    string(models.JobStatusQueued),
		"message":   fmt.Sprintf("Suche gestartet! Verwende /api/search/%s um Status zu pruefen.", jobID),
	})
}

// applyDefaults fills unset request fields from the configured search.
func (s *Server) applyDefaults(criteria *models.SearchCriteria) {
	def := s.cfg.Search
	if def == nil {
		return
	}
	if criteria.Location == "" {
		criteria.Location = def.Location
	}
	if criteria.CheckIn == "" {
		criteria.CheckIn = def.CheckIn
	}
	if criteria.CheckOut == "" {
		criteria.CheckOut = def.CheckOut
	}
	if criteria.Guests == 0 {
		criteria.Guests = def.Guests
	}
	if criteria.MinBedrooms == 0 {
		criteria.MinBedrooms = def.MinBedrooms
	}
	if criteria.RadiusKm == 0 {
		criteria.RadiusKm = def.RadiusKm
	}
	if criteria.MaxPricePerNight == 0 {
		criteria.MaxPricePerNight = def.MaxPricePerNight
	}
	if criteria.MinRating == nil {
		criteria.MinRating = def.MinRating
	}
	if criteria.MinReviews == 0 {
		criteria.MinReviews = def.MinReviews
	}
	if len(criteria.Platforms) == 0 {
		criteria.Platforms = def.Platforms
	}
	if criteria.Amenities == nil {
		criteria.Amenities = def.Amenities
	}
}

func (s *Server) runSearch(jobID string, criteria *models.SearchCriteria) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	names := make([]string, 0, len(criteria.Platforms))
	for _, p := range criteria.Platforms {
		names = append(names, p.DisplayName())
	}
	progress := "Initialisiere Suche..."
	if len(names) > 0 {
		progress = fmt.Sprintf("Suche auf %s...", strings.Join(names, ", "))
	}

	s.updateJob(jobID, func(j *models.SearchJob) {
		j.Status = models.JobStatusRunning
		j.Progress = progress
	})

	outcome, err := s.orchestrator.RunSearch(context.Background(), criteria)
	if err != nil {
		s.updateJob(jobID, func(j *models.SearchJob) {
			j.Status = models.JobStatusFailed
			j.Progress = "Fehler"
			j.Error = err.Error()
		})
		return
	}

	s.updateJob(jobID, func(j *models.SearchJob) {
		j.Status = models.JobStatusCompleted
		j.Progress = "Fertig!"
		j.ResultsCount = outcome.TotalCount()
		if outcome.HTMLPath != "" {
			j.HTMLReportURL = "/results/" + filepath.Base(outcome.HTMLPath)
		}
		if outcome.CSVPath != "" {
			j.CSVFileURL = "/results/" + filepath.Base(outcome.CSVPath)
		}
	})
}

func (s *Server) updateJob(jobID string, fn func(*models.SearchJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		fn(job)
	}
}

func (s *Server) handleSearchStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	s.mu.RLock()
	job, ok := s.jobs[jobID]
	var snapshot models.SearchJob
	if ok {
		snapshot = *job
	}
	s.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Search ID nicht gefunden")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleResultsFile(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.PathValue("filename"))
	path := filepath.Join(s.cfg.ResultsDir, filename)

	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "File nicht gefunden")
		return
	}

	// HTML reports render inline, CSV downloads.
	if strings.HasSuffix(filename, ".csv") {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	http.ServeFile(w, r, path)
}

// ========================================
// FAVORITES
// ========================================

type addFavoriteRequest struct {
	ListName string                `json:"list_name"`
	Location string                `json:"location"`
	Listing  *models.ListingRecord `json:"listing"`
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	fav, err := s.favorites.Add(req.ListName, req.Location, req.Listing)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"favorite_id": fav.ID,
		"message":     "Zu Favoriten hinzugefuegt!",
	})
}

func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	listName := r.URL.Query().Get("list_name")

	favorites, err := s.favorites.List(listName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"count":     len(favorites),
		"favorites": favorites,
	})
}

func (s *Server) handleGetLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.favorites.Lists()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(lists),
		"lists":   lists,
	})
}

type renameListRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

func (s *Server) handleRenameList(w http.ResponseWriter, r *http.Request) {
	var req renameListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	renamed, err := s.favorites.RenameList(req.OldName, req.NewName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if renamed == 0 {
		writeError(w, http.StatusNotFound, "Liste nicht gefunden")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Liste umbenannt: %s -> %s", req.OldName, req.NewName),
	})
}

func (s *Server) handleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid favorite id")
		return
	}

	fav, err := s.favorites.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fav == nil {
		writeError(w, http.StatusNotFound, "Favorit nicht gefunden")
		return
	}

	if err := s.favorites.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Favorit geloescht",
	})
}

type analyzeRequest struct {
	FavoriteIDs []int64 `json:"favorite_ids"`
}

func (s *Server) handleAnalyzeFavorites(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	results, err := s.favorites.AnalyzeBatch(r.Context(), req.FavoriteIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}
