package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"stay_scout/config"
	"stay_scout/models"
	"stay_scout/report"
	"stay_scout/services"
	"stay_scout/storage"
)

// Fetcher renders a page and hands back its parsed DOM. The browser satisfies
// it; tests swap in canned documents.
type Fetcher interface {
	FetchDocument(ctx context.Context, pageURL, waitSelector string) (*goquery.Document, error)
	Close() error
}

// Trigger wakes a background worker outside its normal schedule.
type Trigger interface {
	Trigger()
}

// Orchestrator drives the whole search: one scrape pipeline per platform,
// merge, distance enrichment, review analysis, reports and archive.
type Orchestrator struct {
	cfg      *config.Config
	store    *storage.SQLiteStore
	fetcher  Fetcher
	handlers map[models.Platform]Handler
	// paused is flipped by queued commands and read by the API status
	// endpoint, so it needs to be atomic.
	paused atomic.Bool

	distance *services.DistanceService
	analyzer *services.ReviewAnalyzer
	archive  *services.ArchiveService
	uploader *storage.S3Uploader

	imageWorker  Trigger
	healthWorker Trigger
}

func NewOrchestrator(cfg *config.Config, store *storage.SQLiteStore, fetcher Fetcher) (*Orchestrator, error) {
	handlers := make(map[models.Platform]Handler)
	for id, platformCfg := range cfg.Platforms {
		if !platformCfg.Enabled {
			continue
		}
		handler, err := NewHandler(platformCfg)
		if err != nil {
			return nil, fmt.Errorf("handler for %s: %w", id, err)
		}
		handlers[handler.Platform()] = handler
	}

	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		handlers: handlers,
	}, nil
}

// SetServices injects the optional enrichment and persistence services.
func (o *Orchestrator) SetServices(
	distance *services.DistanceService,
	analyzer *services.ReviewAnalyzer,
	archive *services.ArchiveService,
	uploader *storage.S3Uploader,
) {
	o.distance = distance
	o.analyzer = analyzer
	o.archive = archive
	o.uploader = uploader
}

// SetWorkers wires the background workers command handling can trigger.
func (o *Orchestrator) SetWorkers(imageWorker, healthWorker Trigger) {
	o.imageWorker = imageWorker
	o.healthWorker = healthWorker
}

// RunSearch runs the configured search across every enabled platform and
// returns the merged outcome.
func (o *Orchestrator) RunSearch(ctx context.Context, criteria *models.SearchCriteria) (*models.SearchOutcome, error) {
	return o.RunSearchPlatforms(ctx, criteria, o.enabledPlatforms(criteria))
}

// RunSearchPlatforms runs the search on the given platforms only. One
// platform failing never blocks the merge of the others.
func (o *Orchestrator) RunSearchPlatforms(ctx context.Context, criteria *models.SearchCriteria, platforms []models.Platform) (*models.SearchOutcome, error) {
	if o.paused.Load() {
		return nil, fmt.Errorf("search is paused")
	}
	if criteria == nil {
		return nil, fmt.Errorf("no search criteria configured")
	}
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("no platforms enabled")
	}

	outcome := &models.SearchOutcome{
		ID:        uuid.New(),
		Criteria:  criteria,
		Filter:    models.NewFilterStats(),
		StartedAt: time.Now(),
	}

	log.Printf("Search %s: %s, %s to %s, %d platforms",
		outcome.ID, criteria.Location, criteria.CheckIn, criteria.CheckOut, len(platforms))

	perPlatform := make(map[models.Platform][]*models.ListingRecord, len(platforms))
	for _, p := range platforms {
		accepted, stats, err := o.runPlatform(ctx, outcome.ID, p, criteria)
		result := models.PlatformResult{Platform: p, Count: len(accepted)}
		if err != nil {
			log.Printf("Platform %s failed: %v", p, err)
			result.Error = err.Error()
		}
		outcome.Platforms = append(outcome.Platforms, result)
		if stats != nil {
			outcome.Filter.Merge(stats)
		}
		if len(accepted) > 0 {
			perPlatform[p] = accepted
		}

		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
	}

	combined, counts := services.Combine(perPlatform)
	outcome.Listings = combined
	outcome.PlatformCounts = counts

	o.enrichDistances(ctx, criteria, outcome)
	o.analyzeReviews(ctx, combined)

	outcome.Price = services.PriceSummary(combined)
	outcome.FinishedAt = time.Now()

	o.writeReports(ctx, outcome)

	if o.archive != nil {
		if _, err := o.archive.ArchiveOutcome(ctx, outcome); err != nil {
			log.Printf("Warning: archive failed: %v", err)
		}
	}

	log.Printf("Search %s done: %d listings (%d rejected, %d dropped cards) in %s",
		outcome.ID, len(combined), outcome.Filter.TotalRejected(), outcome.Filter.DroppedCards,
		outcome.FinishedAt.Sub(outcome.StartedAt).Round(time.Second))

	return outcome, nil
}

// runPlatform is the per-platform pipeline: search page, card extraction,
// cheap filter pass, detail fetches for survivors, full filter pass.
func (o *Orchestrator) runPlatform(ctx context.Context, searchID uuid.UUID, p models.Platform, criteria *models.SearchCriteria) ([]*models.ListingRecord, *models.FilterStats, error) {
	handler, ok := o.handlers[p]
	if !ok {
		return nil, nil, fmt.Errorf("no handler for platform: %s", p)
	}

	run := &models.SearchRun{
		SearchID:  searchID.String(),
		Platform:  p,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.store.CreateRun(run)
	if err != nil {
		return nil, nil, err
	}
	run.ID = runID

	stats := models.NewFilterStats()

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		o.store.UpdateRun(run)
		o.store.UpdatePlatformStats(string(p))
	}()

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Starting search on %s", p.DisplayName()), p)

	searchURL, err := handler.SearchURL(criteria)
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorsCount++
		return nil, stats, fmt.Errorf("build search URL: %w", err)
	}

	doc, err := o.fetcher.FetchDocument(ctx, searchURL, handler.CardSelector())
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorsCount++
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Fetch failed: %v", err), p)
		return nil, stats, err
	}

	bags := handler.ParseCards(doc)
	if pager, ok := handler.(Pager); ok {
		bags = o.fetchMorePages(ctx, run, handler, pager, criteria, p, bags)
	}
	run.CardsSeen = len(bags)
	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Found %d result cards", len(bags)), p)

	filter := services.NewFilterEngine(criteria, o.ratingScales(), o.cfg.LogLevel == "debug")

	type survivor struct {
		rec *models.ListingRecord
		bag models.FieldBag
	}
	var survivors []survivor

	for _, bag := range bags {
		rec, ok := BuildRecord(bag, p, handler.RatingScale(), criteria)
		if !ok {
			stats.DroppedCards++
			continue
		}
		run.Extracted++

		res := filter.EvaluateCheap(rec)
		if !res.Passed {
			stats.Record(res)
			if res.Detail != "" {
				o.log(run.ID, models.LogLevelDebug, fmt.Sprintf("Rejected %q: %s", rec.Title, res.Detail), p)
			}
			continue
		}
		survivors = append(survivors, survivor{rec: rec, bag: bag})
	}

	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("%d of %d extracted passed the first pass", len(survivors), run.Extracted), p)

	maxDetails := o.cfg.Scraper.MaxDetails
	if maxDetails > 0 && len(survivors) > maxDetails {
		o.log(run.ID, models.LogLevelWarn,
			fmt.Sprintf("Capping detail fetches at %d (%d skipped)", maxDetails, len(survivors)-maxDetails), p)
		survivors = survivors[:maxDetails]
	}

	delay := o.requestDelay(p)

	var accepted []*models.ListingRecord
	for i, sv := range survivors {
		if ctx.Err() != nil {
			run.Status = models.RunStatusFailed
			return accepted, stats, ctx.Err()
		}
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}

		o.fetchDetail(ctx, run, handler, sv.rec, criteria, p)

		res := filter.Evaluate(sv.rec)
		stats.Record(res)
		if !res.Passed {
			if res.Detail != "" {
				o.log(run.ID, models.LogLevelDebug, fmt.Sprintf("Rejected %q: %s", sv.rec.Title, res.Detail), p)
			}
			continue
		}
		accepted = append(accepted, sv.rec)
	}

	run.Accepted = len(accepted)
	run.Status = models.RunStatusCompleted
	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d cards, %d extracted, %d accepted", run.CardsSeen, run.Extracted, run.Accepted), p)

	return accepted, stats, nil
}

// fetchMorePages walks result pages 2..max_pages and appends their cards,
// skipping URLs already seen on earlier pages. An empty or failed page ends
// the walk; whatever was collected so far still flows into the pipeline.
func (o *Orchestrator) fetchMorePages(ctx context.Context, run *models.SearchRun, handler Handler, pager Pager, criteria *models.SearchCriteria, p models.Platform, bags []models.FieldBag) []models.FieldBag {
	maxPages := 1
	if pc := o.cfg.Platforms[string(p)]; pc != nil && pc.MaxPages > 1 {
		maxPages = pc.MaxPages
	}
	if maxPages == 1 {
		return bags
	}

	delay := o.requestDelay(p)
	seen := make(map[string]bool, len(bags))
	for _, bag := range bags {
		if bag.URL != "" {
			seen[bag.URL] = true
		}
	}

	for page := 2; page <= maxPages; page++ {
		if ctx.Err() != nil {
			return bags
		}
		if delay > 0 {
			time.Sleep(delay)
		}

		pageURL, err := pager.PageURL(criteria, page)
		if err != nil {
			o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("Page %d URL failed: %v", page, err), p)
			return bags
		}
		doc, err := o.fetcher.FetchDocument(ctx, pageURL, handler.CardSelector())
		if err != nil {
			run.ErrorsCount++
			o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("Page %d fetch failed: %v", page, err), p)
			return bags
		}

		added := 0
		for _, bag := range handler.ParseCards(doc) {
			if bag.URL != "" {
				if seen[bag.URL] {
					continue
				}
				seen[bag.URL] = true
			}
			bags = append(bags, bag)
			added++
		}
		o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Page %d: %d new cards", page, added), p)
		if added == 0 {
			return bags
		}
	}

	return bags
}

// requestDelay is the pause between requests to one platform. The platform
// descriptor's rate_limit_ms overrides the global scrape delay.
func (o *Orchestrator) requestDelay(p models.Platform) time.Duration {
	if pc := o.cfg.Platforms[string(p)]; pc != nil && pc.RateLimitMS > 0 {
		return time.Duration(pc.RateLimitMS) * time.Millisecond
	}
	return time.Duration(o.cfg.Scraper.DelayMS) * time.Millisecond
}

// fetchDetail enriches a record from its detail page. A failed fetch keeps
// the card-level record; the full filter pass decides what that costs.
func (o *Orchestrator) fetchDetail(ctx context.Context, run *models.SearchRun, handler Handler, rec *models.ListingRecord, criteria *models.SearchCriteria, p models.Platform) {
	if rec.URL == "" {
		return
	}

	doc, err := o.fetcher.FetchDocument(ctx, rec.URL, "")
	if err != nil {
		run.ErrorsCount++
		o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("Detail fetch failed for %q: %v", rec.Title, err), p)
		return
	}

	bag := handler.ParseDetail(doc)
	EnrichRecord(rec, bag, criteria, SubstringAmenityDetector)
}

func (o *Orchestrator) enrichDistances(ctx context.Context, criteria *models.SearchCriteria, outcome *models.SearchOutcome) {
	if len(outcome.Listings) == 0 {
		return
	}
	if !o.distance.Usable() {
		log.Printf("Distance enrichment skipped: no Maps API key")
		return
	}

	resolved, failed := o.distance.EnrichListings(ctx, criteria.Location, outcome.Listings)
	outcome.Filter.DistanceFailures += failed
	log.Printf("Distance enrichment: %d resolved, %d failed", resolved, failed)
}

func (o *Orchestrator) analyzeReviews(ctx context.Context, listings []*models.ListingRecord) {
	if !o.analyzer.Usable() {
		return
	}

	analyzed := 0
	for _, rec := range listings {
		if len(rec.Reviews) == 0 {
			continue
		}
		rec.Analysis = o.analyzer.AnalyzeReviews(ctx, rec.Title, rec.Reviews)
		analyzed++
	}
	if analyzed > 0 {
		log.Printf("Review analysis: %d listings analyzed", analyzed)
	}
}

func (o *Orchestrator) writeReports(ctx context.Context, outcome *models.SearchOutcome) {
	csvPath, err := report.WriteCSV(outcome, o.cfg.ResultsDir)
	if err != nil {
		log.Printf("Warning: CSV report failed: %v", err)
	} else {
		outcome.CSVPath = csvPath
	}

	htmlPath, err := report.WriteHTML(outcome, o.cfg.ResultsDir)
	if err != nil {
		log.Printf("Warning: HTML report failed: %v", err)
	} else {
		outcome.HTMLPath = htmlPath
	}

	if o.uploader == nil {
		return
	}
	if outcome.CSVPath != "" {
		if url, err := o.uploader.UploadFile(ctx, "reports/"+outcome.ID.String()+".csv", outcome.CSVPath); err != nil {
			log.Printf("Warning: CSV upload failed: %v", err)
		} else {
			outcome.CSVURL = url
		}
	}
	if outcome.HTMLPath != "" {
		if url, err := o.uploader.UploadFile(ctx, "reports/"+outcome.ID.String()+".html", outcome.HTMLPath); err != nil {
			log.Printf("Warning: HTML upload failed: %v", err)
		} else {
			outcome.HTMLURL = url
		}
	}
}

// HandleCommand executes one queued operator command.
func (o *Orchestrator) HandleCommand(cmd *models.Command) error {
	params, err := o.store.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch cmd.Command {
	case models.CmdSearchNow:
		_, err := o.RunSearch(ctx, o.cfg.Search)
		return err
	case models.CmdSearchPlatform:
		if params.Platform != "" {
			_, err := o.RunSearchPlatforms(ctx, o.cfg.Search, []models.Platform{models.Platform(params.Platform)})
			return err
		}
		_, err := o.RunSearch(ctx, o.cfg.Search)
		return err
	case models.CmdPause:
		o.paused.Store(true)
		log.Println("Search paused")
	case models.CmdResume:
		o.paused.Store(false)
		log.Println("Search resumed")
	case models.CmdArchiveImages:
		if o.imageWorker != nil {
			o.imageWorker.Trigger()
		}
	case models.CmdCheckFavorites:
		if o.healthWorker != nil {
			o.healthWorker.Trigger()
		}
	}

	return nil
}

func (o *Orchestrator) IsPaused() bool {
	return o.paused.Load()
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message string, p models.Platform) {
	log.Printf("[%s] %s: %s", level, p, message)
	o.store.Log(&runID, level, message, string(p))
}

func (o *Orchestrator) enabledPlatforms(criteria *models.SearchCriteria) []models.Platform {
	configured := o.cfg.EnabledPlatforms(criteria)
	var available []models.Platform
	for _, p := range configured {
		if _, ok := o.handlers[p]; ok {
			available = append(available, p)
		}
	}
	return available
}

func (o *Orchestrator) ratingScales() map[models.Platform]float64 {
	scales := make(map[models.Platform]float64, len(o.handlers))
	for p, h := range o.handlers {
		scales[p] = h.RatingScale()
	}
	return scales
}

func (o *Orchestrator) PlatformIDs() []string {
	var ids []string
	for _, p := range models.AllPlatforms {
		if _, ok := o.handlers[p]; ok {
			ids = append(ids, string(p))
		}
	}
	return ids
}

func (o *Orchestrator) MarshalStatus() ([]byte, error) {
	status := map[string]interface{}{
		"paused":    o.paused.Load(),
		"platforms": o.PlatformIDs(),
	}
	return json.Marshal(status)
}
