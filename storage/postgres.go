package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"stay_scout/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_runs (
		id UUID PRIMARY KEY,
		location TEXT,
		check_in DATE,
		check_out DATE,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		status TEXT,
		total_listings INT,
		criteria JSONB
	);

	CREATE TABLE IF NOT EXISTS listings (
		id UUID PRIMARY KEY,
		search_id UUID REFERENCES search_runs(id),
		fingerprint TEXT,
		platform TEXT,
		title TEXT,
		url TEXT,
		price_per_night INT,
		rating REAL,
		num_reviews INT,
		is_superhost BOOLEAN,
		distance_km REAL,
		duration_min INT,
		data JSONB,
		scraped_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listing_matches (
		id BIGSERIAL PRIMARY KEY,
		search_id UUID,
		listing_a UUID NOT NULL,
		listing_b UUID NOT NULL,
		confidence REAL,
		match_reasons JSONB,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE(listing_a, listing_b)
	);

	CREATE TABLE IF NOT EXISTS listing_images (
		id UUID PRIMARY KEY,
		listing_id UUID,
		original_url TEXT UNIQUE,
		s3_key TEXT,
		content_hash TEXT,
		status TEXT DEFAULT 'pending',
		attempts INT DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		uploaded_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_listings_search ON listings(search_id);
	CREATE INDEX IF NOT EXISTS idx_listings_fingerprint ON listings(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_matches_search ON listing_matches(search_id);
	CREATE INDEX IF NOT EXISTS idx_images_pending ON listing_images(status, attempts);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Search Runs
// =============================================================================

func (s *PostgresStore) InsertSearchRun(ctx context.Context, outcome *models.SearchOutcome) error {
	criteriaJSON, err := json.Marshal(outcome.Criteria)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO search_runs (id, location, check_in, check_out, started_at, finished_at, status, total_listings, criteria)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			total_listings = EXCLUDED.total_listings`

	_, err = s.pool.Exec(ctx, query,
		outcome.ID, outcome.Criteria.Location, outcome.Criteria.CheckIn, outcome.Criteria.CheckOut,
		outcome.StartedAt, outcome.FinishedAt, string(models.RunStatusCompleted), len(outcome.Listings), criteriaJSON,
	)
	return err
}

// =============================================================================
// Listings
// =============================================================================

// InsertListing archives one accepted listing under its run and returns the
// assigned archive id.
func (s *PostgresStore) InsertListing(ctx context.Context, searchID uuid.UUID, fingerprint string, rec *models.ListingRecord) (uuid.UUID, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO listings (
			id, search_id, fingerprint, platform, title, url, price_per_night,
			rating, num_reviews, is_superhost, distance_km, duration_min, data, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = s.pool.Exec(ctx, query,
		id, searchID, fingerprint, rec.Platform, rec.Title, rec.URL, rec.PriceOrZero(),
		rec.RatingOrZero(), rec.ReviewCount, rec.Superhost, rec.DistanceKm, rec.DurationMin, data, rec.ScrapedAt,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// =============================================================================
// Listing Matches
// =============================================================================

func (s *PostgresStore) InsertListingMatch(ctx context.Context, m *models.ListingMatch) error {
	query := `
		INSERT INTO listing_matches (search_id, listing_a, listing_b, confidence, match_reasons, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (listing_a, listing_b) DO NOTHING
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		m.SearchID, m.ListingA, m.ListingB, m.Confidence, m.MatchReasons, m.CreatedAt,
	).Scan(&m.ID)

	if err == pgx.ErrNoRows {
		return nil // conflict, no insert
	}
	return err
}

// =============================================================================
// Listing Images
// =============================================================================

func (s *PostgresStore) EnqueueImage(ctx context.Context, listingID uuid.UUID, originalURL string) error {
	query := `
		INSERT INTO listing_images (id, listing_id, original_url, status, attempts)
		VALUES ($1, $2, $3, 'pending', 0)
		ON CONFLICT (original_url) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, uuid.New(), listingID, originalURL)
	return err
}

func (s *PostgresStore) GetPendingImages(ctx context.Context, limit int) ([]models.ListingImage, error) {
	query := `
		SELECT id, listing_id, original_url, s3_key, content_hash, status, attempts, created_at, uploaded_at
		FROM listing_images
		WHERE status = 'pending' AND attempts < 3
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.ListingImage
	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(
			&img.ID, &img.ListingID, &img.OriginalURL, &img.S3Key, &img.ContentHash,
			&img.Status, &img.Attempts, &img.CreatedAt, &img.UploadedAt,
		); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *PostgresStore) UpdateImageStatus(ctx context.Context, id uuid.UUID, status string, s3Key *string, contentHash string, attempts int) error {
	query := `
		UPDATE listing_images SET status = $2, s3_key = COALESCE($3, s3_key),
			content_hash = COALESCE(NULLIF($4, ''), content_hash), attempts = $5,
			uploaded_at = CASE WHEN $2 = 'uploaded' THEN NOW() ELSE uploaded_at END
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status, s3Key, contentHash, attempts)
	return err
}
