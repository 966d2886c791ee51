package store

import (
	"context"
	"fmt"
	"time"

	"github.com/amishk599/jobsignal/internal/model"
)

// OpenSession records a visit by userID and marks the user as present.
// Reopening an already open session counts the visit but not a second presence.
func (s *SQLiteStore) OpenSession(ctx context.Context, userID string) (model.VisitCounts, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.VisitCounts{}, fmt.Errorf("opening session %s: %w", userID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO visits (user_id, visited_at) VALUES (?, ?)", userID, now); err != nil {
		return model.VisitCounts{}, fmt.Errorf("recording visit %s: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (user_id, started_at) VALUES (?, ?)", userID, now); err != nil {
		return model.VisitCounts{}, fmt.Errorf("opening session %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return model.VisitCounts{}, fmt.Errorf("opening session %s: %w", userID, err)
	}
	return s.VisitCounts(ctx)
}

// CloseSession ends userID's session. It reports false when no session was open.
func (s *SQLiteStore) CloseSession(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return false, fmt.Errorf("closing session %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing session %s: %w", userID, err)
	}
	return n > 0, nil
}

// VisitCounts returns the current audience counters.
func (s *SQLiteStore) VisitCounts(ctx context.Context) (model.VisitCounts, error) {
	var c model.VisitCounts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM visits),
		(SELECT COUNT(DISTINCT user_id) FROM visits),
		(SELECT COUNT(*) FROM sessions)`).Scan(&c.TotalVisits, &c.UniqueUsers, &c.CurrentUsers)
	if err != nil {
		return model.VisitCounts{}, fmt.Errorf("counting visits: %w", err)
	}
	return c, nil
}
