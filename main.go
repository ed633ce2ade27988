package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stay_scout/config"
	"stay_scout/httputil"
	"stay_scout/logging"
	"stay_scout/models"
	"stay_scout/scheduler"
	"stay_scout/scraper"
	"stay_scout/server"
	"stay_scout/services"
	"stay_scout/storage"
	"stay_scout/vpn"
	"stay_scout/workers"
)

var (
	searchNow  = flag.Bool("search", false, "Run the configured search once and exit")
	platformID = flag.String("platform", "", "Limit the search to one platform id (implies -search)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting stay_scout...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d platform configs", len(cfg.Platforms))
	for id, platform := range cfg.Platforms {
		log.Printf("  - %s (%s, enabled=%t)", platform.Name, id, platform.Enabled)
	}

	ctx := context.Background()

	if cfg.ExpressVPN.AutoConnect {
		v := vpn.New(&vpn.Config{
			ActivationCode: cfg.ExpressVPN.ActivationCode,
			AutoConnect:    cfg.ExpressVPN.AutoConnect,
			Region:         cfg.ExpressVPN.Region,
		})
		if err := v.EnsureConnected(ctx); err != nil {
			log.Printf("Warning: VPN not connected: %v", err)
		} else if loc := v.Location(); loc != "" {
			log.Printf("VPN connected via %s", loc)
		} else {
			log.Println("VPN connected")
		}
	}

	clients := httputil.NewClients(&cfg.Proxy)

	// SQLite holds runs, logs, commands and favorites
	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	// Postgres archive is optional
	var pgStore *storage.PostgresStore
	if cfg.Postgres.DSN != "" {
		pgStore, err = storage.NewPostgresStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Postgres.DSN))
	} else {
		log.Println("POSTGRES_DSN not set, listing archive disabled")
	}

	// S3 uploads are optional
	var uploader *storage.S3Uploader
	s3cfg := storage.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKey,
		SecretAccessKey: cfg.S3.SecretKey,
	}
	if s3cfg.Configured() {
		uploader, err = storage.NewS3Uploader(ctx, s3cfg)
		if err != nil {
			log.Fatalf("Failed to create S3 uploader: %v", err)
		}
		log.Printf("S3 uploads enabled, bucket: %s", s3cfg.Bucket)
	} else {
		log.Println("S3 not configured, reports stay local")
	}

	// Initialize services
	distance := services.NewDistanceService(cfg.Maps.APIKey, clients.API)
	analyzer := services.NewReviewAnalyzer(cfg.Anthropic.APIKey, cfg.Anthropic.Model, clients.API)
	favorites := services.NewFavoritesService(sqliteStore, analyzer)

	var archive *services.ArchiveService
	if pgStore != nil {
		matchService := services.NewMatchService(pgStore)
		archive = services.NewArchiveService(pgStore, matchService)
	}

	log.Println("Services initialized")

	browser := scraper.NewBrowser(cfg)
	defer browser.Close()

	orchestrator, err := scraper.NewOrchestrator(cfg, sqliteStore, browser)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}
	orchestrator.SetServices(distance, analyzer, archive, uploader)

	// Handle one-shot commands
	if *searchNow || *platformID != "" {
		runOnce(ctx, orchestrator, cfg, *platformID)
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerLog := func(level models.LogLevel, source, message string) {
		sqliteStore.Log(nil, level, message, source)
	}

	var imageTrigger scraper.Trigger
	if pgStore != nil {
		var imgUploader workers.S3Uploader = workers.NewNoOpUploader()
		if uploader != nil {
			imgUploader = uploader
		}
		imageWorker := workers.NewImageWorker(pgStore, imgUploader, clients.Download)
		imageWorker.SetLogger(workerLog)
		go imageWorker.Run(ctx, 20, 2*time.Minute)
		imageTrigger = imageWorker
		log.Println("Image worker started")
	}

	healthWorker := workers.NewFavoriteHealthWorker(sqliteStore, clients.Scraping)
	healthWorker.SetLogger(workerLog)
	go healthWorker.Run(ctx, 12*time.Hour)
	log.Println("Favorite check worker started")

	orchestrator.SetWorkers(imageTrigger, healthWorker)

	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := server.New(cfg, orchestrator, favorites)
	go func() {
		if err := srv.Start(ctx); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}

func runOnce(ctx context.Context, orchestrator *scraper.Orchestrator, cfg *config.Config, platformID string) {
	log.Println("Running search...")

	var outcome *models.SearchOutcome
	var err error
	if platformID != "" {
		outcome, err = orchestrator.RunSearchPlatforms(ctx, cfg.Search, []models.Platform{models.Platform(platformID)})
	} else {
		outcome, err = orchestrator.RunSearch(ctx, cfg.Search)
	}
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	log.Printf("Search complete: %d listings", outcome.TotalCount())
	if outcome.CSVPath != "" {
		log.Printf("CSV: %s", outcome.CSVPath)
	}
	if outcome.HTMLPath != "" {
		log.Printf("HTML report: %s", outcome.HTMLPath)
	}
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
