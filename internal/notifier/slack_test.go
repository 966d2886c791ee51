package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/amishk599/jobsignal/internal/aggregate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDigest() Digest {
	return Digest{
		Date:            "2024-03-05",
		Total:           1200,
		FullTime:        900,
		PartTime:        300,
		Remote:          300,
		OnSite:          900,
		TopTechnologies: []aggregate.Count{{Key: "Python", N: 1500}, {Key: "Java", N: 20}},
		TopRoles:        nil,
		Levels:          []aggregate.Count{{Key: "Junior", N: 1}, {Key: "Senior", N: 2}},
	}
}

func TestSlackNotifier_PayloadFormat(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Text != "1,200 IT job listings on 2024-03-05" {
		t.Errorf("fallback text = %q", payload.Text)
	}
	if len(payload.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" {
		t.Errorf("block[0] type = %q, want header", payload.Blocks[0].Type)
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Full-time:*\n900 (75%)" {
		t.Errorf("full-time field = %q", got)
	}
	techs := payload.Blocks[2].Fields[0].Text
	if !strings.Contains(techs, "1. Python (1,500)") || !strings.Contains(techs, "2. Java (20)") {
		t.Errorf("technologies field = %q", techs)
	}
	if roles := payload.Blocks[2].Fields[1].Text; !strings.Contains(roles, "_none_") {
		t.Errorf("empty roles field = %q", roles)
	}
	if levels := payload.Blocks[3].Text.Text; levels != "*Levels:* Junior 1 · Senior 2" {
		t.Errorf("levels = %q", levels)
	}
	if payload.Blocks[4].Type != "divider" {
		t.Errorf("block[4] type = %q, want divider", payload.Blocks[4].Type)
	}
}

func TestSlackNotifier_SlackReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), sampleDigest()); err == nil {
		t.Error("expected error when slack returns 500, got nil")
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSlackNotifier_RateLimitedCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	n.httpClient.Transport = cancelAfterResponse{inner: srv.Client().Transport, cancel: cancel}

	if err := n.Notify(ctx, sampleDigest()); err == nil {
		t.Fatal("expected error when cancelled during Retry-After wait")
	}
}

// cancelAfterResponse cancels the request context once the first response
// has been received.
type cancelAfterResponse struct {
	inner  http.RoundTripper
	cancel context.CancelFunc
}

func (c cancelAfterResponse) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := c.inner.RoundTrip(r)
	c.cancel()
	return resp, err
}

func TestNewDigest_TrimsRankings(t *testing.T) {
	r := aggregate.Report{
		Total:        3,
		Technologies: []aggregate.Count{{Key: "A", N: 3}, {Key: "B", N: 2}, {Key: "C", N: 1}},
		Roles:        []aggregate.Count{{Key: "R", N: 1}},
		Levels:       []aggregate.Count{{Key: "Junior", N: 0}},
	}
	d := NewDigest("2024-03-05", r, 2)
	if len(d.TopTechnologies) != 2 || d.TopTechnologies[1].Key != "B" {
		t.Errorf("TopTechnologies = %v", d.TopTechnologies)
	}
	if len(d.TopRoles) != 1 || len(d.Levels) != 1 {
		t.Errorf("unexpected digest: %+v", d)
	}
}
