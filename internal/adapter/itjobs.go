package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amishk599/jobsignal/internal/model"
)

// itjobsResponse is the paged envelope of job/list.json.
type itjobsResponse struct {
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	Results []itjobsJob `json:"results"`
}

type itjobsJob struct {
	ID          flexString    `json:"id"`
	Title       string        `json:"title"`
	Company     itjobsCompany `json:"company"`
	Locations   []itjobsNamed `json:"locations"`
	Types       []itjobsNamed `json:"types"`
	AllowRemote bool          `json:"allowRemote"`
	Wage        flexString    `json:"wage"`
	PublishedAt string        `json:"publishedAt"`
	UpdatedAt   string        `json:"updatedAt"`
	Slug        string        `json:"slug"`
}

type itjobsCompany struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type itjobsNamed struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type itjobsLocationsResponse struct {
	Results []itjobsNamed `json:"results"`
}

// flexString accepts a JSON string, number or null. The API is not
// consistent about ids and wages.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flexString: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// APISource pages through the ITJobs listings API.
type APISource struct {
	baseURL  string
	apiKey   string
	location string // location name; resolved to an id once per fetch
	pageSize int
	maxPages int
	client   *http.Client
	limiter  PageLimiter
}

// APISourceOptions configures an APISource.
type APISourceOptions struct {
	BaseURL  string
	APIKey   string
	Location string
	PageSize int
	MaxPages int
}

// NewAPISource creates a source for the listings API. limiter may be nil.
func NewAPISource(opts APISourceOptions, client *http.Client, limiter PageLimiter) *APISource {
	return &APISource{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		location: opts.Location,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		client:   client,
		limiter:  limiter,
	}
}

// FetchJobs requests pages until one comes back empty, the reported total is
// reached, or maxPages is hit.
func (s *APISource) FetchJobs(ctx context.Context) ([]model.RawJobRecord, error) {
	locationID := ""
	if s.location != "" {
		locations, err := s.FetchLocations(ctx)
		if err != nil {
			return nil, err
		}
		id, ok := lookupLocation(locations, s.location)
		if !ok {
			return nil, fmt.Errorf("itjobs fetch: unknown location %q", s.location)
		}
		locationID = id
	}

	var records []model.RawJobRecord
	for page := 1; page <= s.maxPages; page++ {
		resp, err := s.fetchPage(ctx, page, locationID)
		if err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, j := range resp.Results {
			records = append(records, j.toRecord())
		}
		if resp.Total > 0 && page*s.pageSize >= resp.Total {
			break
		}
	}
	return records, nil
}

func (s *APISource) fetchPage(ctx context.Context, page int, locationID string) (*itjobsResponse, error) {
	q := url.Values{}
	q.Set("api_key", s.apiKey)
	q.Set("limit", strconv.Itoa(s.pageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("state", "1")
	if locationID != "" {
		q.Set("location", locationID)
	}
	what := fmt.Sprintf("itjobs fetch page %d", page)

	resp, err := get(ctx, s.client, s.limiter, s.baseURL+"/job/list.json?"+q.Encode(), what)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out itjobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &out, nil
}

// FetchLocations returns the API's location names mapped to their ids.
func (s *APISource) FetchLocations(ctx context.Context) (map[string]string, error) {
	q := url.Values{}
	q.Set("api_key", s.apiKey)

	resp, err := get(ctx, s.client, s.limiter, s.baseURL+"/location/list.json?"+q.Encode(), "itjobs fetch locations")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out itjobsLocationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("itjobs fetch locations: %w", err)
	}
	locations := make(map[string]string, len(out.Results))
	for _, l := range out.Results {
		locations[l.Name] = string(l.ID)
	}
	return locations, nil
}

func lookupLocation(locations map[string]string, name string) (string, bool) {
	if id, ok := locations[name]; ok {
		return id, true
	}
	for n, id := range locations {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return "", false
}

func (j itjobsJob) toRecord() model.RawJobRecord {
	rec := model.RawJobRecord{
		ID:                string(j.ID),
		Title:             cleanText(j.Title),
		Company:           cleanText(j.Company.Name),
		AllowRemote:       j.AllowRemote,
		Wage:              string(j.Wage),
		PostedOrUpdatedAt: model.NotAvailable,
		Source:            "api",
	}
	if j.UpdatedAt != "" {
		rec.PostedOrUpdatedAt = j.UpdatedAt
	} else if j.PublishedAt != "" {
		rec.PostedOrUpdatedAt = j.PublishedAt
	}
	if len(j.Types) > 0 {
		rec.JobTypeID = string(j.Types[0].ID)
	}
	for _, l := range j.Locations {
		if l.Name != "" {
			rec.Locations = append(rec.Locations, l.Name)
		}
	}
	if j.Slug != "" && rec.ID != "" {
		rec.URL = fmt.Sprintf("https://www.itjobs.pt/oferta/%s/%s", rec.ID, j.Slug)
	}
	return rec
}
