package aggregate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsignal/internal/extract"
	"github.com/amishk599/jobsignal/internal/model"
)

const (
	sourceDateLayout  = "2006-01-02 15:04:05"
	displayDateLayout = "02-01-2006"

	JobTypeFullTime = "Full-Time"
	JobTypePartTime = "Part-Time"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("aggregate: register notblank: %v", err))
	}
	return v
}

// Count is one (key, occurrences) pair of a frequency table.
type Count struct {
	Key string `json:"key"`
	N   int    `json:"count"`
}

// Row is the display summary of one listing, with the terms extracted from its title.
type Row struct {
	Title        string      `json:"title"`
	Company      string      `json:"company"`
	Date         string      `json:"date"`
	JobType      string      `json:"job_type"`
	Remote       bool        `json:"remote"`
	Location     string      `json:"location"`
	Wage         string      `json:"wage"`
	URL          string      `json:"url,omitempty"`
	Level        model.Level `json:"level"`
	Technologies []string    `json:"technologies,omitempty"`
	Roles        []string    `json:"roles,omitempty"`
}

// State accumulates frequency tables over a batch of listings. It is built
// by a single goroutine; once the batch is folded it is read-only.
type State struct {
	Total    int
	FullTime int
	PartTime int
	Remote   int
	OnSite   int

	technologies map[string]int
	roles        map[string]int
	levels       map[model.Level]int
	companies    map[string]int
	locations    map[string]int
	rows         []Row
}

// NewState returns an empty State with every level counter present at zero.
func NewState() *State {
	levels := make(map[model.Level]int, len(model.Levels))
	for _, l := range model.Levels {
		levels[l] = 0
	}
	return &State{
		technologies: make(map[string]int),
		roles:        make(map[string]int),
		levels:       levels,
		companies:    make(map[string]int),
		locations:    make(map[string]int),
	}
}

// Validate checks the fields the aggregator cannot do without. index is the
// record's position in its batch and is carried by the returned *model.RecordError.
func Validate(index int, rec model.RawJobRecord) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &model.RecordError{Index: index, ID: rec.ID, Field: strings.ToLower(verrs[0].Field())}
	}
	return fmt.Errorf("validate record %d: %w", index, err)
}

// Add folds one record and its extraction into the state. A record missing a
// required field returns *model.RecordError and leaves the state untouched.
func (s *State) Add(index int, rec model.RawJobRecord, ex extract.Extraction) error {
	if err := Validate(index, rec); err != nil {
		return err
	}

	techs := distinctTerms(ex.Technologies)
	roles := distinctTerms(ex.Roles)
	for _, t := range techs {
		s.technologies[t]++
	}
	for _, r := range roles {
		s.roles[r]++
	}
	level := normalizeLevel(ex.Level)
	s.levels[level]++

	for _, loc := range rec.Locations {
		s.locations[loc]++
	}

	jobType := JobTypePartTime
	if rec.JobTypeID == model.FullTimeTypeID {
		jobType = JobTypeFullTime
		s.FullTime++
	} else {
		s.PartTime++
	}

	if rec.AllowRemote {
		s.Remote++
	} else {
		s.OnSite++
	}

	s.companies[rec.Company]++

	s.rows = append(s.rows, Row{
		Title:        rec.Title,
		Company:      rec.Company,
		Date:         FormatDate(rec.PostedOrUpdatedAt),
		JobType:      jobType,
		Remote:       rec.AllowRemote,
		Location:     locationLabel(rec.Locations),
		Wage:         WageLabel(rec.Wage),
		URL:          rec.URL,
		Level:        level,
		Technologies: techs,
		Roles:        roles,
	})
	s.Total++
	return nil
}

// distinctTerms returns a fresh copy of terms with case-insensitive repeats
// removed, keeping the first spelling, so a term counts once per record.
func distinctTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func normalizeLevel(l model.Level) model.Level {
	switch l {
	case model.LevelJunior, model.LevelMid, model.LevelSenior:
		return l
	default:
		return model.LevelUnknown
	}
}

// FormatDate renders "YYYY-MM-DD HH:MM:SS" as "DD-MM-YYYY". Anything else,
// including the "N/A" sentinel, yields "N/A".
func FormatDate(raw string) string {
	t, err := time.Parse(sourceDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return model.NotAvailable
	}
	return t.Format(displayDateLayout)
}

// WageLabel maps an absent or "null" wage to "Not disclosed".
func WageLabel(wage string) string {
	w := strings.TrimSpace(wage)
	if w == "" || strings.EqualFold(w, "null") {
		return model.NotDisclosed
	}
	return w
}

func locationLabel(locations []string) string {
	if len(locations) == 0 {
		return model.NotAvailable
	}
	return strings.Join(locations, ", ")
}

// Process extracts and folds records strictly in order. The first invalid
// record aborts the batch with its *model.RecordError.
func Process(ctx context.Context, records []model.RawJobRecord, ex extract.Extractor) (*State, error) {
	s := NewState()
	for i, rec := range records {
		e, err := ex.Extract(ctx, rec.Title)
		if err != nil {
			return nil, fmt.Errorf("extract record %d: %w", i, err)
		}
		if err := s.Add(i, rec, e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ProcessParallel runs extraction on up to workers goroutines and then folds
// the results sequentially in input order, so the outcome matches Process.
func ProcessParallel(ctx context.Context, records []model.RawJobRecord, ex extract.Extractor, workers int) (*State, error) {
	extractions, err := ExtractAll(ctx, records, ex, workers)
	if err != nil {
		return nil, err
	}
	s := NewState()
	for i, rec := range records {
		if err := s.Add(i, rec, extractions[i]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ExtractAll computes one Extraction per record, index-aligned with records.
func ExtractAll(ctx context.Context, records []model.RawJobRecord, ex extract.Extractor, workers int) ([]extract.Extraction, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]extract.Extraction, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range records {
		g.Go(func() error {
			e, err := ex.Extract(gctx, records[i].Title)
			if err != nil {
				return fmt.Errorf("extract record %d: %w", i, err)
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// TechCounts returns technology frequencies, most frequent first.
func (s *State) TechCounts() []Count { return sortCounts(s.technologies) }

// RoleCounts returns role frequencies, most frequent first.
func (s *State) RoleCounts() []Count { return sortCounts(s.roles) }

// CompanyCounts returns listings per company, most frequent first.
func (s *State) CompanyCounts() []Count { return sortCounts(s.companies) }

// LocationCounts returns listings per location, most frequent first.
func (s *State) LocationCounts() []Count { return sortCounts(s.locations) }

// LevelCounts returns all four levels in fixed order, zeros included.
func (s *State) LevelCounts() []Count {
	out := make([]Count, 0, len(model.Levels))
	for _, l := range model.Levels {
		out = append(out, Count{Key: string(l), N: s.levels[l]})
	}
	return out
}

// Level returns the counter for a single level.
func (s *State) Level(l model.Level) int { return s.levels[l] }

// Rows returns the per-listing summaries in the order they were folded.
func (s *State) Rows() []Row {
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		r.Technologies = slices.Clone(r.Technologies)
		r.Roles = slices.Clone(r.Roles)
		out[i] = r
	}
	return out
}

// sortCounts orders by count descending, then key ascending for stable output.
func sortCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Key < out[j].Key
	})
	return out
}
