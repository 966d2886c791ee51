package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsignal/internal/model"
)

// ScrapeSource reads the server-rendered listing pages over plain HTTP.
type ScrapeSource struct {
	crawler listingCrawler
	client  *http.Client
	limiter PageLimiter
}

// NewScrapeSource creates a source that scrapes listingURL. filter and limiter may be nil.
func NewScrapeSource(listingURL string, maxPages int, filter model.RecordFilter, client *http.Client, limiter PageLimiter) *ScrapeSource {
	s := &ScrapeSource{client: client, limiter: limiter}
	s.crawler = listingCrawler{
		listingURL: listingURL,
		maxPages:   maxPages,
		filter:     filter,
		load:       s.loadPage,
		source:     "scrape",
		now:        time.Now,
	}
	return s
}

// FetchJobs walks every listing page and returns the kept records.
func (s *ScrapeSource) FetchJobs(ctx context.Context) ([]model.RawJobRecord, error) {
	return s.crawler.crawl(ctx)
}

func (s *ScrapeSource) loadPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	what := fmt.Sprintf("scrape %s", pageURL)
	resp, err := get(ctx, s.client, s.limiter, pageURL, what)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return doc, nil
}
