package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"stay_scout/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_runs (
		id INTEGER PRIMARY KEY,
		search_id TEXT,
		platform TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		cards_seen INTEGER,
		extracted INTEGER,
		accepted INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		platform TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS favorites (
		id INTEGER PRIMARY KEY,
		list_name TEXT NOT NULL,
		location TEXT,
		listing JSON NOT NULL,
		status TEXT DEFAULT 'active',
		last_checked_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ai_analyses (
		id INTEGER PRIMARY KEY,
		favorite_id INTEGER NOT NULL UNIQUE,
		analysis JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (favorite_id) REFERENCES favorites(id)
	);

	CREATE TABLE IF NOT EXISTS platform_stats (
		platform TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		total_runs INTEGER,
		total_accepted INTEGER,
		success_rate REAL,
		avg_run_duration_sec INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON search_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_search ON search_runs(search_id);
	CREATE INDEX IF NOT EXISTS idx_favorites_list ON favorites(list_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.SearchRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO search_runs (search_id, platform, started_at, status, cards_seen, extracted, accepted, errors_count)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0)`,
		run.SearchID, run.Platform, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.SearchRun) error {
	_, err := s.db.Exec(`
		UPDATE search_runs SET finished_at = ?, status = ?, cards_seen = ?,
			extracted = ?, accepted = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.CardsSeen, run.Extracted, run.Accepted, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, platform string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, platform)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, platform)
	return err
}

func (s *SQLiteStore) InsertCommand(command models.CommandType, params interface{}) error {
	var paramsJSON []byte
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO commands (command, params, created_at)
		VALUES (?, ?, ?)`,
		command, paramsJSON, time.Now())
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

func (s *SQLiteStore) AddFavorite(listName, location string, listing json.RawMessage) (int64, error) {
	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO favorites (list_name, location, listing, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		listName, location, []byte(listing), models.FavoriteStatusActive, now, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetFavorites returns favorites of one list, or all lists when listName is
// empty, newest first.
func (s *SQLiteStore) GetFavorites(listName string) ([]models.Favorite, error) {
	query := `
		SELECT id, list_name, location, listing, status, last_checked_at, created_at, updated_at
		FROM favorites`
	args := []interface{}{}
	if listName != "" {
		query += " WHERE list_name = ?"
		args = append(args, listName)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favs []models.Favorite
	for rows.Next() {
		f, err := scanFavorite(rows.Scan)
		if err != nil {
			return nil, err
		}
		favs = append(favs, *f)
	}
	return favs, rows.Err()
}

func (s *SQLiteStore) GetFavorite(id int64) (*models.Favorite, error) {
	row := s.db.QueryRow(`
		SELECT id, list_name, location, listing, status, last_checked_at, created_at, updated_at
		FROM favorites WHERE id = ?`, id)

	f, err := scanFavorite(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func scanFavorite(scan func(...interface{}) error) (*models.Favorite, error) {
	var f models.Favorite
	var location sql.NullString
	var listing []byte
	var lastChecked sql.NullTime
	if err := scan(&f.ID, &f.ListName, &location, &listing, &f.Status,
		&lastChecked, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Location = location.String
	f.Listing = json.RawMessage(listing)
	if lastChecked.Valid {
		t := lastChecked.Time
		f.LastCheckedAt = &t
	}
	return &f, nil
}

func (s *SQLiteStore) GetFavoriteLists() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT list_name FROM favorites ORDER BY list_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) RenameFavoriteList(oldName, newName string) (int64, error) {
	result, err := s.db.Exec(`
		UPDATE favorites SET list_name = ?, updated_at = ? WHERE list_name = ?`,
		newName, time.Now(), oldName)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) DeleteFavorite(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM ai_analyses WHERE favorite_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM favorites WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) UpdateFavoriteStatus(id int64, status models.FavoriteStatus) error {
	now := time.Now()
	_, err := s.db.Exec(`
		UPDATE favorites SET status = ?, last_checked_at = ?, updated_at = ? WHERE id = ?`,
		status, now, now, id)
	return err
}

func (s *SQLiteStore) SaveAnalysis(favoriteID int64, analysis *models.ReviewAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO ai_analyses (favorite_id, analysis, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(favorite_id) DO UPDATE SET analysis = excluded.analysis, created_at = excluded.created_at`,
		favoriteID, data, time.Now())
	return err
}

// GetAnalysis returns the cached analysis for a favorite, or nil when none
// has been stored.
func (s *SQLiteStore) GetAnalysis(favoriteID int64) (*models.ReviewAnalysis, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT analysis FROM ai_analyses WHERE favorite_id = ?`, favoriteID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var analysis models.ReviewAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (s *SQLiteStore) UpdatePlatformStats(platform string) error {
	_, err := s.db.Exec(`
		INSERT INTO platform_stats (platform, last_run_at, last_run_status, total_runs,
			total_accepted, success_rate, avg_run_duration_sec)
		SELECT
			?,
			COALESCE(
				(SELECT started_at FROM search_runs WHERE platform = ? AND status = 'completed' ORDER BY started_at DESC LIMIT 1),
				(SELECT started_at FROM search_runs WHERE platform = ? ORDER BY started_at DESC LIMIT 1)
			),
			(SELECT status FROM search_runs WHERE platform = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT COUNT(*) FROM search_runs WHERE platform = ?),
			(SELECT COALESCE(SUM(accepted), 0) FROM search_runs WHERE platform = ?),
			(SELECT CAST(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS REAL) /
				NULLIF(COUNT(*), 0) FROM search_runs WHERE platform = ?),
			(SELECT AVG(CAST((julianday(finished_at) - julianday(started_at)) * 86400 AS INTEGER))
				FROM search_runs WHERE platform = ? AND finished_at IS NOT NULL)
		ON CONFLICT(platform) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			total_runs = excluded.total_runs,
			total_accepted = excluded.total_accepted,
			success_rate = excluded.success_rate,
			avg_run_duration_sec = excluded.avg_run_duration_sec`,
		platform, platform, platform, platform, platform, platform, platform, platform)
	return err
}

func (s *SQLiteStore) GetLastRunTime(platform string) (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT last_run_at FROM platform_stats WHERE platform = ?`, platform).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}

// ResetAllData clears all SQLite operational tables
func (s *SQLiteStore) ResetAllData() error {
	tables := []string{
		"scrape_logs",
		"search_runs",
		"ai_analyses",
		"favorites",
		"platform_stats",
		"commands",
	}

	for _, table := range tables {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	return nil
}
