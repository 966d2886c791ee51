package aggregate

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/amishk599/jobsignal/internal/extract"
	"github.com/amishk599/jobsignal/internal/model"
	"github.com/amishk599/jobsignal/internal/vocab"
)

func testExtractor(t *testing.T) extract.Extractor {
	t.Helper()
	v, err := vocab.New(
		[]string{"Python", "React"},
		[]string{"Backend Developer", "Frontend Developer"},
	)
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	return extract.NewKeywordExtractor(v)
}

func recordA() model.RawJobRecord {
	return model.RawJobRecord{
		ID:                "a",
		Title:             "Senior Backend Developer (Python)",
		Company:           "Acme",
		Locations:         []string{"Lisboa", "Porto"},
		PostedOrUpdatedAt: "2024-03-05 10:00:00",
		JobTypeID:         "1",
		AllowRemote:       true,
		Wage:              "null",
	}
}

func recordB() model.RawJobRecord {
	return model.RawJobRecord{
		ID:                "b",
		Title:             "Junior Frontend Developer - React",
		Company:           "Beta",
		Locations:         []string{"Lisboa"},
		PostedOrUpdatedAt: "N/A",
		JobTypeID:         "2",
		Wage:              "1500€",
	}
}

func countsToMap(counts []Count) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Key] = c.N
	}
	return m
}

func TestProcess_EndToEnd(t *testing.T) {
	s, err := Process(context.Background(), []model.RawJobRecord{recordA(), recordB()}, testExtractor(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got, want := countsToMap(s.TechCounts()), map[string]int{"Python": 1, "React": 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("TechCounts = %v, want %v", got, want)
	}
	if got, want := countsToMap(s.RoleCounts()), map[string]int{"Backend Developer": 1, "Frontend Developer": 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("RoleCounts = %v, want %v", got, want)
	}
	wantLevels := []Count{{"Junior", 1}, {"Mid-level", 0}, {"Senior", 1}, {"Unknown", 0}}
	if got := s.LevelCounts(); !reflect.DeepEqual(got, wantLevels) {
		t.Errorf("LevelCounts = %v, want %v", got, wantLevels)
	}
	if s.Total != 2 {
		t.Errorf("Total = %d, want 2", s.Total)
	}
	if s.FullTime != 1 || s.PartTime != 1 {
		t.Errorf("FullTime/PartTime = %d/%d, want 1/1", s.FullTime, s.PartTime)
	}
	if s.Remote != 1 || s.OnSite != 1 {
		t.Errorf("Remote/OnSite = %d/%d, want 1/1", s.Remote, s.OnSite)
	}
	wantLocations := []Count{{"Lisboa", 2}, {"Porto", 1}}
	if got := s.LocationCounts(); !reflect.DeepEqual(got, wantLocations) {
		t.Errorf("LocationCounts = %v, want %v", got, wantLocations)
	}
	if got := countsToMap(s.CompanyCounts()); got["Acme"] != 1 || got["Beta"] != 1 {
		t.Errorf("CompanyCounts = %v", got)
	}

	rows := s.Rows()
	wantRows := []Row{
		{
			Title: recordA().Title, Company: "Acme", Date: "05-03-2024", JobType: JobTypeFullTime, Remote: true,
			Location: "Lisboa, Porto", Wage: model.NotDisclosed, Level: model.LevelSenior,
			Technologies: []string{"Python"}, Roles: []string{"Backend Developer"},
		},
		{
			Title: recordB().Title, Company: "Beta", Date: model.NotAvailable, JobType: JobTypePartTime, Remote: false,
			Location: "Lisboa", Wage: "1500€", Level: model.LevelJunior,
			Technologies: []string{"React"}, Roles: []string{"Frontend Developer"},
		},
	}
	if !reflect.DeepEqual(rows, wantRows) {
		t.Errorf("Rows = %+v\nwant %+v", rows, wantRows)
	}
}

func TestProcess_OrderIndependentCounters(t *testing.T) {
	ex := testExtractor(t)
	ab, err := Process(context.Background(), []model.RawJobRecord{recordA(), recordB()}, ex)
	if err != nil {
		t.Fatalf("Process AB: %v", err)
	}
	ba, err := Process(context.Background(), []model.RawJobRecord{recordB(), recordA()}, ex)
	if err != nil {
		t.Fatalf("Process BA: %v", err)
	}

	rAB, rBA := ab.Report(), ba.Report()
	if !reflect.DeepEqual(rAB.Technologies, rBA.Technologies) ||
		!reflect.DeepEqual(rAB.Roles, rBA.Roles) ||
		!reflect.DeepEqual(rAB.Levels, rBA.Levels) ||
		!reflect.DeepEqual(rAB.Companies, rBA.Companies) ||
		!reflect.DeepEqual(rAB.Locations, rBA.Locations) ||
		rAB.Total != rBA.Total || rAB.FullTime != rBA.FullTime || rAB.Remote != rBA.Remote {
		t.Errorf("counters differ between orderings:\nAB=%+v\nBA=%+v", rAB, rBA)
	}
	if rAB.Rows[0].Company != "Acme" || rBA.Rows[0].Company != "Beta" {
		t.Errorf("rows must follow input order, got %q then %q", rAB.Rows[0].Company, rBA.Rows[0].Company)
	}
}

func TestProcess_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *model.RawJobRecord)
		wantField string
	}{
		{"missing title", func(r *model.RawJobRecord) { r.Title = "" }, "title"},
		{"blank title", func(r *model.RawJobRecord) { r.Title = "   " }, "title"},
		{"missing company", func(r *model.RawJobRecord) { r.Company = "" }, "company"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := recordB()
			tt.mutate(&bad)
			_, err := Process(context.Background(), []model.RawJobRecord{recordA(), bad}, testExtractor(t))
			var recErr *model.RecordError
			if !errors.As(err, &recErr) {
				t.Fatalf("Process() error = %v, want *model.RecordError", err)
			}
			if recErr.Index != 1 || recErr.ID != "b" || recErr.Field != tt.wantField {
				t.Errorf("RecordError = %+v, want index 1 id b field %s", recErr, tt.wantField)
			}
		})
	}
}

func TestAdd_InvalidRecordLeavesStateUntouched(t *testing.T) {
	s := NewState()
	err := s.Add(0, model.RawJobRecord{Title: "Go Developer"}, extract.Extraction{Technologies: []string{"Go"}, Level: model.LevelUnknown})
	if err == nil {
		t.Fatal("expected error for missing company")
	}
	if s.Total != 0 || len(s.TechCounts()) != 0 || s.Level(model.LevelUnknown) != 0 || len(s.Rows()) != 0 {
		t.Errorf("state mutated by invalid record: %+v", s.Report())
	}
}

func TestAdd_NoLocations(t *testing.T) {
	s := NewState()
	rec := recordA()
	rec.Locations = nil
	if err := s.Add(0, rec, extract.Extraction{Level: model.LevelSenior}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n := len(s.LocationCounts()); n != 0 {
		t.Errorf("LocationCounts has %d entries, want 0", n)
	}
	if loc := s.Rows()[0].Location; loc != model.NotAvailable {
		t.Errorf("Row.Location = %q, want N/A", loc)
	}
}

func TestAdd_RepeatedTermCountsOncePerRecord(t *testing.T) {
	s := NewState()
	rec := model.RawJobRecord{Title: "Go Go", Company: "X"}
	ex := extract.Extraction{
		Technologies: []string{"Go", "go", "Go"},
		Roles:        []string{"Developer", "Developer"},
	}
	if err := s.Add(0, rec, ex); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.TechCounts(); !reflect.DeepEqual(got, []Count{{Key: "Go", N: 1}}) {
		t.Errorf("TechCounts = %v, want [{Go 1}]", got)
	}
	if got := s.RoleCounts(); !reflect.DeepEqual(got, []Count{{Key: "Developer", N: 1}}) {
		t.Errorf("RoleCounts = %v, want [{Developer 1}]", got)
	}
	row := s.Rows()[0]
	if !reflect.DeepEqual(row.Technologies, []string{"Go"}) || !reflect.DeepEqual(row.Roles, []string{"Developer"}) {
		t.Errorf("row terms = %v / %v, want deduplicated", row.Technologies, row.Roles)
	}
}

func TestRows_ReturnsIndependentCopies(t *testing.T) {
	s := NewState()
	techs := []string{"Python"}
	if err := s.Add(0, recordA(), extract.Extraction{Technologies: techs, Roles: []string{"Backend Developer"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	techs[0] = "changed by caller"

	rows := s.Rows()
	rows[0].Technologies[0] = "MUTATED"
	rows[0].Roles[0] = "MUTATED"

	again := s.Rows()[0]
	if again.Technologies[0] != "Python" || again.Roles[0] != "Backend Developer" {
		t.Errorf("state changed through returned rows: %v / %v", again.Technologies, again.Roles)
	}
}

func TestProcessParallel_MatchesSequential(t *testing.T) {
	var records []model.RawJobRecord
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			records = append(records, recordA())
		} else {
			records = append(records, recordB())
		}
	}
	ex := testExtractor(t)

	seq, err := Process(context.Background(), records, ex)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	par, err := ProcessParallel(context.Background(), records, ex, 8)
	if err != nil {
		t.Fatalf("ProcessParallel: %v", err)
	}
	if !reflect.DeepEqual(seq.Report(), par.Report()) {
		t.Error("parallel extraction produced a different report")
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) (extract.Extraction, error) {
	return extract.Extraction{}, errors.New("model offline")
}

func TestProcessParallel_ExtractorError(t *testing.T) {
	_, err := ProcessParallel(context.Background(), []model.RawJobRecord{recordA()}, failingExtractor{}, 2)
	if err == nil {
		t.Fatal("expected extractor error to propagate")
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2024-03-05 10:00:00", "05-03-2024"},
		{"N/A", "N/A"},
		{"not-a-date", "N/A"},
		{"", "N/A"},
		{"2024-03-05", "N/A"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWageLabel(t *testing.T) {
	for in, want := range map[string]string{"": model.NotDisclosed, "null": model.NotDisclosed, "NULL": model.NotDisclosed, "30k": "30k"} {
		if got := WageLabel(in); got != want {
			t.Errorf("WageLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnapshot_IncludesTerms(t *testing.T) {
	s, err := Process(context.Background(), []model.RawJobRecord{recordA()}, testExtractor(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	snap := s.Snapshot("2024-03-05")
	if snap.JobCount != 1 || snap.Date != "2024-03-05" {
		t.Errorf("snapshot header = %+v", snap)
	}
	found := false
	for _, tc := range snap.Terms {
		if tc.Kind == "technology" && tc.Term == "Python" && tc.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("Python technology term missing from %+v", snap.Terms)
	}
}
