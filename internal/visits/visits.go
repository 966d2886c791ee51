// Package visits counts dashboard visitors: total visits, distinct users and
// users currently holding an open session.
package visits

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/amishk599/jobsignal/internal/model"
)

// Store persists visits and open sessions. *store.SQLiteStore implements it.
type Store interface {
	OpenSession(ctx context.Context, userID string) (model.VisitCounts, error)
	CloseSession(ctx context.Context, userID string) (bool, error)
	VisitCounts(ctx context.Context) (model.VisitCounts, error)
}

// Tracker hands out user ids and records their visits in a Store.
type Tracker struct {
	store Store
	newID func() string
}

// NewTracker returns a Tracker backed by store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, newID: uuid.NewString}
}

// TrackVisit records a visit. userID is the caller's existing id, or empty for
// a first visit, in which case a new id is minted and returned.
func (t *Tracker) TrackVisit(ctx context.Context, userID string) (string, model.VisitCounts, error) {
	if userID == "" {
		userID = t.newID()
	}
	counts, err := t.store.OpenSession(ctx, userID)
	if err != nil {
		return "", model.VisitCounts{}, fmt.Errorf("track visit: %w", err)
	}
	return userID, counts, nil
}

// TrackExit closes userID's session and reports whether one was open.
func (t *Tracker) TrackExit(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	found, err := t.store.CloseSession(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("track exit: %w", err)
	}
	return found, nil
}

// Counts returns the current counters.
func (t *Tracker) Counts(ctx context.Context) (model.VisitCounts, error) {
	return t.store.VisitCounts(ctx)
}

// MemoryStore is an in-process Store. Counters reset on restart.
type MemoryStore struct {
	mu       sync.Mutex
	total    int
	users    map[string]struct{}
	sessions map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]struct{}),
		sessions: make(map[string]struct{}),
	}
}

func (m *MemoryStore) OpenSession(_ context.Context, userID string) (model.VisitCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.users[userID] = struct{}{}
	m.sessions[userID] = struct{}{}
	return m.countsLocked(), nil
}

func (m *MemoryStore) CloseSession(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[userID]; !ok {
		return false, nil
	}
	delete(m.sessions, userID)
	return true, nil
}

func (m *MemoryStore) VisitCounts(context.Context) (model.VisitCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countsLocked(), nil
}

func (m *MemoryStore) countsLocked() model.VisitCounts {
	return model.VisitCounts{
		TotalVisits:  m.total,
		UniqueUsers:  len(m.users),
		CurrentUsers: len(m.sessions),
	}
}
