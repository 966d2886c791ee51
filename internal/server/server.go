// Package server exposes the latest report, the snapshot history and the
// visitor counters over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/amishk599/jobsignal/internal/aggregate"
	"github.com/amishk599/jobsignal/internal/model"
	"github.com/amishk599/jobsignal/internal/pipeline"
	"github.com/amishk599/jobsignal/internal/store"
	"github.com/amishk599/jobsignal/internal/visits"
)

const (
	userIDCookie         = "user_id"
	defaultSnapshotLimit = 30
)

// Analyzer runs one fetch → extract → aggregate pass.
type Analyzer interface {
	Analyze(ctx context.Context) (*pipeline.Result, error)
}

// Server serves the JSON API.
type Server struct {
	analyzer  Analyzer
	snapshots model.SnapshotStore
	tracker   *visits.Tracker
	cacheTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	cached   *aggregate.Report
	cachedAt time.Time
}

// New creates a Server. A nil snapshots store serves an empty history; a
// non-positive cacheTTL re-runs the analysis on every report request.
func New(analyzer Analyzer, snapshots model.SnapshotStore, tracker *visits.Tracker, cacheTTL time.Duration, logger *slog.Logger) *Server {
	if snapshots == nil {
		snapshots = store.NewNopStore()
	}
	return &Server{
		analyzer:  analyzer,
		snapshots: snapshots,
		tracker:   tracker,
		cacheTTL:  cacheTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Handler returns the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/snapshots", s.handleSnapshots)
	mux.HandleFunc("GET /track_visit", s.handleTrackVisit)
	mux.HandleFunc("GET /track_exit", s.handleTrackExit)
	return s.withLogging(s.withCORS(mux))
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a cold /api/report runs a full fetch
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			// Credentials need the concrete origin echoed back, not "*".
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.report(r.Context())
	if err != nil {
		s.logger.Error("report failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not build report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// report returns the cached report while fresh. Concurrent misses share one
// analysis run, which outlives any single request's cancellation.
func (s *Server) report(ctx context.Context) (aggregate.Report, error) {
	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < s.cacheTTL {
		rep := *s.cached
		s.mu.Unlock()
		return rep, nil
	}
	s.mu.Unlock()

	ch := s.group.DoChan("report", func() (any, error) {
		res, err := s.analyzer.Analyze(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		rep := res.State.Report()
		s.mu.Lock()
		s.cached, s.cachedAt = &rep, s.now()
		s.mu.Unlock()
		return rep, nil
	})
	select {
	case <-ctx.Done():
		return aggregate.Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return aggregate.Report{}, res.Err
		}
		return res.Val.(aggregate.Report), nil
	}
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := defaultSnapshotLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	snaps, err := s.snapshots.Snapshots(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing snapshots failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list snapshots")
		return
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleTrackVisit(w http.ResponseWriter, r *http.Request) {
	var existing string
	if c, err := r.Cookie(userIDCookie); err == nil {
		existing = c.Value
	}
	userID, counts, err := s.tracker.TrackVisit(r.Context(), existing)
	if err != nil {
		s.logger.Error("track visit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not track visit")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     userIDCookie,
		Value:    userID,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleTrackExit(w http.ResponseWriter, r *http.Request) {
	var userID string
	if c, err := r.Cookie(userIDCookie); err == nil {
		userID = c.Value
	}
	found, err := s.tracker.TrackExit(r.Context(), userID)
	if err != nil {
		s.logger.Error("track exit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not track exit")
		return
	}
	msg := "No session found"
	if found {
		msg = "Exit tracked"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
