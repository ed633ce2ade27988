package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stay_scout/config"
	"stay_scout/models"
	"stay_scout/scraper"
	"stay_scout/storage"
)

// stubFetcher serves an empty result page so scheduled runs finish without
// a browser.
type stubFetcher struct{}

func (stubFetcher) FetchDocument(ctx context.Context, pageURL, waitSelector string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
}

func (stubFetcher) Close() error { return nil }

func testScheduler(t *testing.T, cronExpr string) (*Scheduler, *storage.SQLiteStore, *scraper.Orchestrator) {
	t.Helper()

	cfg := &config.Config{
		ResultsDir: t.TempDir(),
		LogLevel:   "info",
		Platforms: map[string]*config.PlatformConfig{
			"airbnb": {ID: "airbnb", Name: "Airbnb", RatingScale: 5, Enabled: true},
		},
		Scheduler: config.SchedulerConfig{Cron: cronExpr},
	}

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	orchestrator, err := scraper.NewOrchestrator(cfg, store, stubFetcher{})
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}

	return New(cfg, orchestrator, store), store, orchestrator
}

func TestStartRejectsInvalidCron(t *testing.T) {
	sched, _, _ := testScheduler(t, "not a cron")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestCommandPolling(t *testing.T) {
	sched, store, orchestrator := testScheduler(t, "")

	if err := store.InsertCommand(models.CmdPause, nil); err != nil {
		t.Fatalf("failed to queue command: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// The poller ticks every two seconds.
	deadline := time.Now().Add(5 * time.Second)
	for !orchestrator.IsPaused() {
		if time.Now().After(deadline) {
			t.Fatal("pause command was not processed in time")
		}
		time.Sleep(50 * time.Millisecond)
	}

	for {
		pending, err := store.GetPendingCommands()
		if err != nil {
			t.Fatalf("failed to list pending commands: %v", err)
		}
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the command to be marked processed, %d still pending", len(pending))
		}
		time.Sleep(50 * time.Millisecond)
	}
}
