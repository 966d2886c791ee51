package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsignal/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		date       TEXT PRIMARY KEY,
		job_count  INTEGER NOT NULL,
		full_time  INTEGER NOT NULL DEFAULT 0,
		part_time  INTEGER NOT NULL DEFAULT 0,
		remote     INTEGER NOT NULL DEFAULT 0,
		on_site    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_terms (
		date  TEXT NOT NULL REFERENCES snapshots(date) ON DELETE CASCADE,
		kind  TEXT NOT NULL,
		term  TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (date, kind, term)
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		visited_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		user_id    TEXT PRIMARY KEY,
		started_at TEXT NOT NULL
	)`,
}

// SQLiteStore persists daily snapshots and visit sessions in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection keeps writes serialized and in-memory databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// SaveSnapshot stores s and its term counts. At most one snapshot exists per
// day: when s.Date is already stored nothing is written and false is returned.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) (bool, error) {
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("saving snapshot %s: %w", snap.Date, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO snapshots (date, job_count, full_time, part_time, remote, on_site, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Date, snap.JobCount, snap.FullTime, snap.PartTime, snap.Remote, snap.OnSite,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("saving snapshot %s: %w", snap.Date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("saving snapshot %s: %w", snap.Date, err)
	}
	if n == 0 {
		return false, nil
	}

	for _, tc := range snap.Terms {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO snapshot_terms (date, kind, term, count) VALUES (?, ?, ?, ?)",
			snap.Date, tc.Kind, tc.Term, tc.Count,
		); err != nil {
			return false, fmt.Errorf("saving snapshot %s term %s/%s: %w", snap.Date, tc.Kind, tc.Term, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing snapshot %s: %w", snap.Date, err)
	}
	return true, nil
}

// Snapshots returns the most recent snapshots, newest first. A non-positive
// limit returns all of them.
func (s *SQLiteStore) Snapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, job_count, full_time, part_time, remote, on_site, created_at
		 FROM snapshots ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var createdAt string
		if err := rows.Scan(&snap.Date, &snap.JobCount, &snap.FullTime, &snap.PartTime,
			&snap.Remote, &snap.OnSite, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	rows.Close()

	for i := range snaps {
		terms, err := s.terms(ctx, snaps[i].Date)
		if err != nil {
			return nil, err
		}
		snaps[i].Terms = terms
	}
	return snaps, nil
}

func (s *SQLiteStore) terms(ctx context.Context, date string) ([]model.TermCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, term, count FROM snapshot_terms WHERE date = ?
		 ORDER BY kind, count DESC, term`, date)
	if err != nil {
		return nil, fmt.Errorf("loading terms for %s: %w", date, err)
	}
	defer rows.Close()

	var terms []model.TermCount
	for rows.Next() {
		var tc model.TermCount
		if err := rows.Scan(&tc.Kind, &tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scanning term for %s: %w", date, err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// HasSnapshot reports whether a snapshot for date is already stored.
func (s *SQLiteStore) HasSnapshot(ctx context.Context, date string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM snapshots WHERE date = ?", date).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking snapshot for %s: %w", date, err)
	}
	return true, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
