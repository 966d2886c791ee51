package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobsignal/internal/extract"
	"github.com/amishk599/jobsignal/internal/model"
	"github.com/amishk599/jobsignal/internal/notifier"
	"github.com/amishk599/jobsignal/internal/vocab"
)

// --- Mock/Fake Implementations ---

// MockSource returns a canned slice of records or an error.
type MockSource struct {
	Records []model.RawJobRecord
	Err     error
	Calls   int
}

func (m *MockSource) FetchJobs(_ context.Context) ([]model.RawJobRecord, error) {
	m.Calls++
	return m.Records, m.Err
}

// InMemoryStore keeps snapshots keyed by date.
type InMemoryStore struct {
	snaps map[string]model.Snapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snaps: make(map[string]model.Snapshot)}
}

func (s *InMemoryStore) SaveSnapshot(_ context.Context, snap model.Snapshot) (bool, error) {
	if _, ok := s.snaps[snap.Date]; ok {
		return false, nil
	}
	s.snaps[snap.Date] = snap
	return true, nil
}

func (s *InMemoryStore) Snapshots(_ context.Context, _ int) ([]model.Snapshot, error) {
	var out []model.Snapshot
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	return out, nil
}

// CheckingStore also answers HasSnapshot, so the pipeline can skip fetching.
type CheckingStore struct {
	*InMemoryStore
}

func (s CheckingStore) HasSnapshot(_ context.Context, date string) (bool, error) {
	_, ok := s.snaps[date]
	return ok, nil
}

// RecordingNotifier records the digests sent to Notify.
type RecordingNotifier struct {
	Digests []notifier.Digest
	Err     error
}

func (n *RecordingNotifier) Notify(_ context.Context, d notifier.Digest) error {
	n.Digests = append(n.Digests, d)
	return n.Err
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) (extract.Extraction, error) {
	return extract.Extraction{}, errors.New("model unavailable")
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testExtractor(t *testing.T) extract.Extractor {
	t.Helper()
	v, err := vocab.New([]string{"Python", "Java", "React"}, []string{"Backend", "Frontend"})
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	return extract.NewKeywordExtractor(v)
}

func sampleRecords() []model.RawJobRecord {
	return []model.RawJobRecord{
		{ID: "1", Title: "Senior Backend Developer (Python)", Company: "Acme", JobTypeID: "1", AllowRemote: true},
		{ID: "2", Title: "   ", Company: "Beta"},
		{ID: "3", Title: "Junior Frontend Developer - React", Company: "Acme", JobTypeID: "2"},
	}
}

func fixedNow() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }

func newTestPipeline(t *testing.T, src model.JobSource, opts Options) *Pipeline {
	p := New(src, testExtractor(t), opts, discardLogger())
	p.now = fixedNow
	return p
}

// --- Tests ---

func TestAnalyze_SkipsInvalidRecords(t *testing.T) {
	p := newTestPipeline(t, &MockSource{Records: sampleRecords()}, Options{Workers: 2})

	res, err := p.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() = %v", err)
	}
	if res.Fetched != 3 || res.Skipped != 1 || res.State.Total != 2 {
		t.Errorf("fetched=%d skipped=%d total=%d, want 3/1/2", res.Fetched, res.Skipped, res.State.Total)
	}
	if res.State.Level(model.LevelSenior) != 1 || res.State.Level(model.LevelJunior) != 1 {
		t.Errorf("unexpected level counts: %v", res.State.LevelCounts())
	}
	if res.State.Remote != 1 || res.State.FullTime != 1 {
		t.Errorf("remote=%d full_time=%d, want 1/1", res.State.Remote, res.State.FullTime)
	}
}

func TestAnalyze_SourceError(t *testing.T) {
	p := newTestPipeline(t, &MockSource{Err: errors.New("boom")}, Options{})
	if _, err := p.Analyze(context.Background()); err == nil {
		t.Fatal("expected error from failing source")
	}
}

func TestAnalyze_ExtractorErrorAborts(t *testing.T) {
	p := New(&MockSource{Records: sampleRecords()}, failingExtractor{}, Options{}, discardLogger())
	if _, err := p.Analyze(context.Background()); err == nil {
		t.Fatal("expected error from failing extractor")
	}
}

func TestSnapshot_SavesAndNotifies(t *testing.T) {
	store := NewInMemoryStore()
	n := &RecordingNotifier{}
	p := newTestPipeline(t, &MockSource{Records: sampleRecords()}, Options{Store: store, Notifier: n, TopN: 1})

	saved, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() = %v", err)
	}
	if !saved {
		t.Fatal("expected snapshot to be saved")
	}
	snap, ok := store.snaps["2024-03-05"]
	if !ok {
		t.Fatalf("no snapshot stored for 2024-03-05: %v", store.snaps)
	}
	if snap.JobCount != 2 || !snap.CreatedAt.Equal(fixedNow()) {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if len(n.Digests) != 1 {
		t.Fatalf("expected 1 digest, got %d", len(n.Digests))
	}
	if d := n.Digests[0]; d.Date != "2024-03-05" || d.Total != 2 || len(d.TopTechnologies) != 1 {
		t.Errorf("unexpected digest: %+v", d)
	}
}

func TestSnapshot_SecondRunSameDayIsNoop(t *testing.T) {
	store := NewInMemoryStore()
	n := &RecordingNotifier{}
	src := &MockSource{Records: sampleRecords()}
	p := newTestPipeline(t, src, Options{Store: store, Notifier: n})

	if _, err := p.Snapshot(context.Background()); err != nil {
		t.Fatalf("first Snapshot() = %v", err)
	}
	saved, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("second Snapshot() = %v", err)
	}
	if saved {
		t.Error("expected second snapshot of the day to be skipped")
	}
	if len(n.Digests) != 1 {
		t.Errorf("expected digest only for the saved snapshot, got %d", len(n.Digests))
	}
	if src.Calls != 2 {
		t.Errorf("expected a fetch per run without HasSnapshot, got %d", src.Calls)
	}
}

func TestSnapshot_SkipsFetchWhenStoreKnowsToday(t *testing.T) {
	store := CheckingStore{NewInMemoryStore()}
	store.snaps["2024-03-05"] = model.Snapshot{Date: "2024-03-05"}
	src := &MockSource{Records: sampleRecords()}
	p := newTestPipeline(t, src, Options{Store: store})

	saved, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() = %v", err)
	}
	if saved || src.Calls != 0 {
		t.Errorf("saved=%v calls=%d, want no fetch", saved, src.Calls)
	}
}

func TestSnapshot_NotifierErrorIsNotFatal(t *testing.T) {
	n := &RecordingNotifier{Err: errors.New("slack down")}
	p := newTestPipeline(t, &MockSource{Records: sampleRecords()}, Options{Store: NewInMemoryStore(), Notifier: n})

	saved, err := p.Snapshot(context.Background())
	if err != nil || !saved {
		t.Fatalf("Snapshot() = %v, %v; want saved despite notifier failure", saved, err)
	}
}

func TestSnapshot_RequiresStore(t *testing.T) {
	p := newTestPipeline(t, &MockSource{}, Options{})
	if _, err := p.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error without a store")
	}
}
