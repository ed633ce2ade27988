package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"stay_scout/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := testStore(t)

	run := &models.SearchRun{
		SearchID:  "search-1",
		Platform:  models.PlatformAirbnb,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected a positive run id, got %d", id)
	}
	run.ID = id

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.CardsSeen = 18
	run.Extracted = 12
	run.Accepted = 5
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	if err := store.Log(&run.ID, models.LogLevelInfo, "Airbnb: 5 accepted", "airbnb"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if err := store.UpdatePlatformStats("airbnb"); err != nil {
		t.Fatalf("UpdatePlatformStats failed: %v", err)
	}
	lastRun, err := store.GetLastRunTime("airbnb")
	if err != nil {
		t.Fatalf("GetLastRunTime failed: %v", err)
	}
	if lastRun.IsZero() {
		t.Fatal("expected a last run time after a completed run")
	}

	// A platform without runs reports the zero time, not an error.
	never, err := store.GetLastRunTime("expedia")
	if err != nil {
		t.Fatalf("GetLastRunTime for unknown platform failed: %v", err)
	}
	if !never.IsZero() {
		t.Fatalf("expected zero time for unknown platform, got %v", never)
	}
}

func TestCommandQueue(t *testing.T) {
	store := testStore(t)

	if err := store.InsertCommand(models.CmdSearchPlatform, models.CommandParams{Platform: "booking"}); err != nil {
		t.Fatalf("InsertCommand failed: %v", err)
	}
	if err := store.InsertCommand(models.CmdPause, nil); err != nil {
		t.Fatalf("InsertCommand without params failed: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands failed: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected 2 pending commands, got %d", len(cmds))
	}
	if cmds[0].Command != models.CmdSearchPlatform {
		t.Fatalf("expected oldest command first, got %s", cmds[0].Command)
	}

	params, err := store.ParseCommandParams(&cmds[0])
	if err != nil {
		t.Fatalf("ParseCommandParams failed: %v", err)
	}
	if params.Platform != "booking" {
		t.Fatalf("expected platform booking, got %q", params.Platform)
	}

	// Missing params decode to an empty struct, not an error.
	empty, err := store.ParseCommandParams(&cmds[1])
	if err != nil {
		t.Fatalf("ParseCommandParams on empty params failed: %v", err)
	}
	if empty.Platform != "" {
		t.Fatalf("expected empty params, got %+v", empty)
	}

	if err := store.MarkCommandProcessed(cmds[0].ID); err != nil {
		t.Fatalf("MarkCommandProcessed failed: %v", err)
	}
	remaining, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Command != models.CmdPause {
		t.Fatalf("expected only the pause command to remain, got %+v", remaining)
	}
}

func TestFavoritesLifecycle(t *testing.T) {
	store := testStore(t)

	listing := json.RawMessage(`{"platform":"airbnb","title":"Chalet Bergblick","url":"https://www.airbnb.ch/rooms/12345678"}`)
	id, err := store.AddFavorite("winter", "Zermatt", listing)
	if err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}

	fav, err := store.GetFavorite(id)
	if err != nil {
		t.Fatalf("GetFavorite failed: %v", err)
	}
	if fav == nil {
		t.Fatal("favorite not found after insert")
	}
	if fav.ListName != "winter" || fav.Location != "Zermatt" || fav.Status != models.FavoriteStatusActive {
		t.Fatalf("unexpected favorite: %+v", fav)
	}
	if fav.ListingURL() != "https://www.airbnb.ch/rooms/12345678" {
		t.Fatalf("unexpected listing url: %q", fav.ListingURL())
	}
	if fav.LastCheckedAt != nil {
		t.Fatal("fresh favorite must not carry a check timestamp")
	}

	if _, err := store.AddFavorite("summer", "Locarno", listing); err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}

	all, err := store.GetFavorites("")
	if err != nil {
		t.Fatalf("GetFavorites failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(all))
	}
	winter, err := store.GetFavorites("winter")
	if err != nil {
		t.Fatalf("GetFavorites(winter) failed: %v", err)
	}
	if len(winter) != 1 || winter[0].ID != id {
		t.Fatalf("unexpected winter list: %+v", winter)
	}

	lists, err := store.GetFavoriteLists()
	if err != nil {
		t.Fatalf("GetFavoriteLists failed: %v", err)
	}
	if len(lists) != 2 || lists[0] != "summer" || lists[1] != "winter" {
		t.Fatalf("unexpected lists: %v", lists)
	}

	if err := store.UpdateFavoriteStatus(id, models.FavoriteStatusUnavailable); err != nil {
		t.Fatalf("UpdateFavoriteStatus failed: %v", err)
	}
	fav, err = store.GetFavorite(id)
	if err != nil {
		t.Fatalf("GetFavorite failed: %v", err)
	}
	if fav.Status != models.FavoriteStatusUnavailable || fav.LastCheckedAt == nil {
		t.Fatalf("status update not persisted: %+v", fav)
	}

	moved, err := store.RenameFavoriteList("winter", "laax")
	if err != nil {
		t.Fatalf("RenameFavoriteList failed: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected 1 renamed favorite, got %d", moved)
	}

	if err := store.DeleteFavorite(id); err != nil {
		t.Fatalf("DeleteFavorite failed: %v", err)
	}
	gone, err := store.GetFavorite(id)
	if err != nil {
		t.Fatalf("GetFavorite failed: %v", err)
	}
	if gone != nil {
		t.Fatal("favorite must be gone after delete")
	}
}

func TestAnalysisCache(t *testing.T) {
	store := testStore(t)

	id, err := store.AddFavorite("winter", "Zermatt", json.RawMessage(`{"url":"https://example.com"}`))
	if err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}

	missing, err := store.GetAnalysis(id)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if missing != nil {
		t.Fatal("expected no cached analysis")
	}

	first := &models.ReviewAnalysis{Summary: "Erste Analyse", Cleanliness: "Gut"}
	if err := store.SaveAnalysis(id, first); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	got, err := store.GetAnalysis(id)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got == nil || got.Summary != "Erste Analyse" || got.Cleanliness != "Gut" {
		t.Fatalf("unexpected cached analysis: %+v", got)
	}

	// Re-saving replaces, each favorite holds at most one analysis.
	second := &models.ReviewAnalysis{Summary: "Zweite Analyse"}
	if err := store.SaveAnalysis(id, second); err != nil {
		t.Fatalf("SaveAnalysis upsert failed: %v", err)
	}
	got, err = store.GetAnalysis(id)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got == nil || got.Summary != "Zweite Analyse" {
		t.Fatalf("upsert did not replace the analysis: %+v", got)
	}

	// Deleting the favorite clears the cached analysis with it.
	if err := store.DeleteFavorite(id); err != nil {
		t.Fatalf("DeleteFavorite failed: %v", err)
	}
	got, err = store.GetAnalysis(id)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got != nil {
		t.Fatal("analysis must be deleted with its favorite")
	}
}

func TestResetAllData(t *testing.T) {
	store := testStore(t)

	if _, err := store.CreateRun(&models.SearchRun{SearchID: "s", Platform: models.PlatformAirbnb, StartedAt: time.Now(), Status: models.RunStatusRunning}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := store.InsertCommand(models.CmdSearchNow, nil); err != nil {
		t.Fatalf("InsertCommand failed: %v", err)
	}
	if _, err := store.AddFavorite("winter", "Zermatt", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}

	if err := store.ResetAllData(); err != nil {
		t.Fatalf("ResetAllData failed: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands failed: %v", err)
	}
	if len(cmds) != 0 {
		t.Fatalf("expected no commands after reset, got %d", len(cmds))
	}
	favs, err := store.GetFavorites("")
	if err != nil {
		t.Fatalf("GetFavorites failed: %v", err)
	}
	if len(favs) != 0 {
		t.Fatalf("expected no favorites after reset, got %d", len(favs))
	}
}
