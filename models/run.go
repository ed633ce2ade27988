package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SearchRun is one platform pipeline execution within a search. A search over
// three platforms produces three runs sharing the same SearchID.
type SearchRun struct {
	ID          int64      `json:"id" db:"id"`
	SearchID    string     `json:"search_id" db:"search_id"`
	Platform    Platform   `json:"platform" db:"platform"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      RunStatus  `json:"status" db:"status"`
	CardsSeen   int        `json:"cards_seen" db:"cards_seen"`
	Extracted   int        `json:"extracted" db:"extracted"`
	Accepted    int        `json:"accepted" db:"accepted"`
	ErrorsCount int        `json:"errors_count" db:"errors_count"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// SearchJob tracks an API-triggered search so clients can poll for progress.
type SearchJob struct {
	ID            string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	Progress      string    `json:"progress,omitempty"`
	ResultsCount  int       `json:"results_count"`
	HTMLReportURL string    `json:"html_report_url,omitempty"`
	CSVFileURL    string    `json:"csv_file_url,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PlatformResult summarizes one platform's contribution to a search.
type PlatformResult struct {
	Platform Platform `json:"platform"`
	Count    int      `json:"count"`
	Error    string   `json:"error,omitempty"`
}

// PriceStats holds per-night price aggregates over the merged result set.
// Mean is rounded to two decimals. Zero values mean no priced listings.
type PriceStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
}

// SearchOutcome is the full result of one search across all requested
// platforms: the merged listings plus bookkeeping for reports and the API.
type SearchOutcome struct {
	ID             uuid.UUID        `json:"search_id"`
	Criteria       *SearchCriteria  `json:"criteria"`
	Listings       []*ListingRecord `json:"listings"`
	PlatformCounts map[Platform]int `json:"platform_counts"`
	Platforms      []PlatformResult `json:"platforms"`
	Filter         *FilterStats     `json:"filter_stats"`
	Price          PriceStats       `json:"price_stats"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
	CSVPath        string           `json:"csv_path,omitempty"`
	HTMLPath       string           `json:"html_path,omitempty"`
	CSVURL         string           `json:"csv_url,omitempty"`
	HTMLURL        string           `json:"html_url,omitempty"`
}

// TotalCount returns the merged listing count.
func (o *SearchOutcome) TotalCount() int {
	return len(o.Listings)
}
