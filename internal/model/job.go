package model

import (
	"context"
	"time"
)

// Sentinel display values used when a listing omits optional data.
const (
	NotAvailable = "N/A"
	NotDisclosed = "Not disclosed"
)

// FullTimeTypeID is the job type identifier the listings API uses for full-time roles.
const FullTimeTypeID = "1"

// RawJobRecord is a single listing as handed over by a JobSource.
// Optional fields use their zero value when absent; defaulting to display
// values happens in the aggregator, not here.
type RawJobRecord struct {
	ID                string   // source identifier, optional
	Title             string   `validate:"notblank"`
	Company           string   `validate:"notblank"`
	Locations         []string // ordered, possibly empty
	PostedOrUpdatedAt string   // "YYYY-MM-DD HH:MM:SS" or "N/A"
	JobTypeID         string   // "1" = full-time, anything else part-time
	AllowRemote       bool
	Wage              string // "" or "null" = undisclosed
	URL               string
	Source            string // "api", "scrape", "browser"
}

// Level is a seniority level derived from a job title.
type Level string

const (
	LevelJunior  Level = "Junior"
	LevelMid     Level = "Mid-level"
	LevelSenior  Level = "Senior"
	LevelUnknown Level = "Unknown"
)

// Levels lists every level in display order.
var Levels = []Level{LevelJunior, LevelMid, LevelSenior, LevelUnknown}

// Snapshot is a point-in-time summary of one analysis run, keyed by calendar day.
type Snapshot struct {
	Date      string      `json:"date"` // YYYY-MM-DD
	JobCount  int         `json:"job_count"`
	FullTime  int         `json:"full_time"`
	PartTime  int         `json:"part_time"`
	Remote    int         `json:"remote"`
	OnSite    int         `json:"on_site"`
	Terms     []TermCount `json:"terms,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// TermCount is one counter row persisted alongside a snapshot.
type TermCount struct {
	Kind  string `json:"kind"` // "technology", "role", "level", "company", "location"
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// JobSource fetches a finite batch of raw listings (API, static scrape, browser).
type JobSource interface {
	FetchJobs(ctx context.Context) ([]RawJobRecord, error)
}

// SnapshotStore persists daily snapshots. SaveSnapshot reports false when a
// snapshot for that day already exists.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s Snapshot) (bool, error)
	Snapshots(ctx context.Context, limit int) ([]Snapshot, error)
}

// RecordFilter decides whether a scraped listing is kept.
type RecordFilter interface {
	Match(rec RawJobRecord) bool
}

// VisitCounts are the dashboard audience counters.
type VisitCounts struct {
	TotalVisits  int `json:"total_visits"`
	UniqueUsers  int `json:"unique_users"`
	CurrentUsers int `json:"current_users"`
}
