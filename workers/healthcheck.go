package workers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"stay_scout/models"
	"stay_scout/storage"
)

// FavoriteHealthWorker checks whether saved favorites are still bookable
type FavoriteHealthWorker struct {
	store      *storage.SQLiteStore
	httpClient *http.Client
	triggerCh  chan struct{}
	logFunc    LogFunc
}

func (w *FavoriteHealthWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// NewFavoriteHealthWorker creates a new favorite healthcheck worker. The
// client must not follow redirects, a redirect is a delisting signal here.
func NewFavoriteHealthWorker(store *storage.SQLiteStore, client *http.Client) *FavoriteHealthWorker {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &FavoriteHealthWorker{
		store:      store,
		httpClient: client,
		triggerCh:  make(chan struct{}, 1),
		logFunc:    NoOpLogger,
	}
}

// Trigger causes the worker to run immediately
func (w *FavoriteHealthWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// CheckResult contains the outcome of checking a listing URL
type CheckResult struct {
	IsLive     bool
	StatusCode int
	Error      error
}

// Check fetches a listing URL and determines if it still resolves to a
// bookable page. HEAD first, full GET only when the status is ambiguous.
func (w *FavoriteHealthWorker) Check(ctx context.Context, listingURL string) CheckResult {
	result := w.checkWithHEAD(ctx, listingURL)
	if result.Error == nil {
		// Booking platforms serve 200 for removed listings with a notice in
		// the body, so a 200 HEAD still needs the body looked at.
		if result.IsLive && result.StatusCode == 200 {
			return w.checkWithGET(ctx, listingURL)
		}
		return result
	}

	return w.checkWithGET(ctx, listingURL)
}

// checkWithHEAD does a lightweight HEAD request to check if URL is still valid
func (w *FavoriteHealthWorker) checkWithHEAD(ctx context.Context, listingURL string) CheckResult {
	req, err := http.NewRequestWithContext(ctx, "HEAD", listingURL, nil)
	if err != nil {
		return CheckResult{Error: err}
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return CheckResult{Error: err}
	}
	resp.Body.Close()

	result := CheckResult{StatusCode: resp.StatusCode}

	switch resp.StatusCode {
	case 200:
		result.IsLive = true
	case 404, 410:
		result.IsLive = false
	case 301, 302:
		location := resp.Header.Get("Location")
		if isDelistRedirect(location) {
			result.IsLive = false
		} else {
			result.IsLive = true
		}
	default:
		// For other codes, assume still live
		result.IsLive = true
	}

	return result
}

// checkWithGET fetches the page body and scans it for removal notices
func (w *FavoriteHealthWorker) checkWithGET(ctx context.Context, listingURL string) CheckResult {
	req, err := http.NewRequestWithContext(ctx, "GET", listingURL, nil)
	if err != nil {
		return CheckResult{Error: err}
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "de-CH,de;q=0.9,en;q=0.8")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return CheckResult{Error: err}
	}
	defer resp.Body.Close()

	result := CheckResult{StatusCode: resp.StatusCode}

	switch resp.StatusCode {
	case 200:
		result.IsLive = true
		body, err := io.ReadAll(io.LimitReader(resp.Body, 500*1024))
		if err == nil && isDelistedPage(string(body)) {
			result.IsLive = false
		}
	case 404, 410:
		result.IsLive = false
	case 301, 302:
		location := resp.Header.Get("Location")
		if isDelistRedirect(location) {
			result.IsLive = false
		} else {
			result.IsLive = true
		}
	default:
		result.IsLive = true
	}

	return result
}

// isDelistedPage checks HTML content for signs the listing was removed
func isDelistedPage(html string) bool {
	delistIndicators := []string{
		"nicht mehr verfügbar",
		"no longer available",
		"Dieses Inserat wurde entfernt",
		"listing has been removed",
		"Diese Unterkunft ist nicht mehr",
		"property is no longer listed",
	}
	htmlLower := strings.ToLower(html)
	for _, indicator := range delistIndicators {
		if strings.Contains(htmlLower, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

// isDelistRedirect checks if a redirect URL indicates delisting
func isDelistRedirect(location string) bool {
	delistPatterns := []string{
		"/search",
		"/s/",
		"notfound",
		"error",
	}

	for _, pattern := range delistPatterns {
		if strings.Contains(strings.ToLower(location), strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// Run starts the favorite healthcheck worker loop
func (w *FavoriteHealthWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Favorite check worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		case <-w.triggerCh:
			log.Println("Favorite check worker triggered manually")
			w.processBatch(ctx)
		}
	}
}

func (w *FavoriteHealthWorker) processBatch(ctx context.Context) {
	favorites, err := w.store.GetFavorites("")
	if err != nil {
		log.Printf("Favorite check: query error: %v", err)
		return
	}

	if len(favorites) == 0 {
		return
	}

	log.Printf("Favorite check: checking %d favorites", len(favorites))

	var checked, unavailable int
	for i := range favorites {
		fav := &favorites[i]

		listingURL := fav.ListingURL()
		if listingURL == "" {
			continue
		}

		if ctx.Err() != nil {
			return
		}

		result := w.Check(ctx, listingURL)
		checked++

		if result.Error != nil {
			log.Printf("Favorite check: error checking %s: %v", listingURL, result.Error)
			continue
		}

		status := models.FavoriteStatusActive
		if !result.IsLive {
			log.Printf("Favorite check: listing gone (status %d): %s", result.StatusCode, listingURL)
			status = models.FavoriteStatusUnavailable
			unavailable++
		}

		if err := w.store.UpdateFavoriteStatus(fav.ID, status); err != nil {
			log.Printf("Favorite check: failed to update favorite %d: %v", fav.ID, err)
		}

		// Rate limit between requests
		time.Sleep(500 * time.Millisecond)
	}

	if checked > 0 {
		log.Printf("Favorite check: checked %d, unavailable %d", checked, unavailable)
		msg := fmt.Sprintf("Checked %d favorites", checked)
		if unavailable > 0 {
			msg += fmt.Sprintf(", %d unavailable", unavailable)
		}
		w.logFunc(models.LogLevelInfo, "favorite_check", msg)
	}
}
