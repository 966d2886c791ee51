package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsignal/internal/model"
)

// pageLoader returns the parsed document for one listing page URL.
type pageLoader func(ctx context.Context, pageURL string) (*goquery.Document, error)

// listingCrawler walks the paginated HTML listing shared by the scrape and
// browser sources. Only the way a page is loaded differs between them.
type listingCrawler struct {
	listingURL string
	maxPages   int
	filter     model.RecordFilter
	load       pageLoader
	source     string
	now        func() time.Time
}

func (c *listingCrawler) crawl(ctx context.Context) ([]model.RawJobRecord, error) {
	base, err := url.Parse(c.listingURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse listing url: %w", c.source, err)
	}

	first, err := c.load(ctx, pageURL(base, 1))
	if err != nil {
		return nil, err
	}
	last := lastPageNumber(first)
	if last > c.maxPages {
		last = c.maxPages
	}

	var records []model.RawJobRecord
	for page := 1; page <= last; page++ {
		doc := first
		if page > 1 {
			doc, err = c.load(ctx, pageURL(base, page))
			if err != nil {
				return nil, err
			}
		}
		for _, rec := range parseListing(doc, base, c.now()) {
			rec.Source = c.source
			if c.filter == nil || c.filter.Match(rec) {
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

func pageURL(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// lastPageNumber reads the pagination bar; its second to last item is the
// highest page number. A page without pagination has one page.
func lastPageNumber(doc *goquery.Document) int {
	items := doc.Find("ul.pagination li")
	if items.Length() < 2 {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(items.Eq(items.Length() - 2).Text()))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parseListing extracts one record per title/company pair in each job block.
func parseListing(doc *goquery.Document, base *url.URL, now time.Time) []model.RawJobRecord {
	var records []model.RawJobRecord
	doc.Find("div.block.borderless").Each(func(_ int, block *goquery.Selection) {
		posted := model.NotAvailable
		if box := block.Find("div.date-box").First(); box.Length() > 0 {
			posted = listingDate(
				strings.TrimSpace(box.Find("div.d-d").First().Text()),
				strings.TrimSpace(box.Find("div.d-m").First().Text()),
				now,
			)
		}

		titles := block.Find("div.list-title a")
		companies := block.Find("div.list-name")
		n := titles.Length()
		if companies.Length() < n {
			n = companies.Length()
		}
		for i := 0; i < n; i++ {
			a := titles.Eq(i)
			rec := model.RawJobRecord{
				Title:             strings.Join(strings.Fields(a.Text()), " "),
				Company:           strings.Join(strings.Fields(companies.Eq(i).Text()), " "),
				PostedOrUpdatedAt: posted,
			}
			if href, ok := a.Attr("href"); ok && href != "" {
				if ref, err := url.Parse(href); err == nil {
					rec.URL = base.ResolveReference(ref).String()
				}
			}
			records = append(records, rec)
		}
	})
	return records
}

// monthAbbrev covers the Portuguese and English short month names the listing uses.
var monthAbbrev = map[string]time.Month{
	"jan": time.January, "fev": time.February, "feb": time.February,
	"mar": time.March, "abr": time.April, "apr": time.April,
	"mai": time.May, "may": time.May, "jun": time.June, "jul": time.July,
	"ago": time.August, "aug": time.August, "set": time.September, "sep": time.September,
	"out": time.October, "oct": time.October, "nov": time.November,
	"dez": time.December, "dec": time.December,
}

// listingDate converts the day/month date box into "YYYY-MM-DD 00:00:00".
// The box has no year: the most recent such date not after now is assumed.
func listingDate(day, month string, now time.Time) string {
	d, err := strconv.Atoi(day)
	if err != nil {
		return model.NotAvailable
	}
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(month), "."))
	if len(key) > 3 {
		key = key[:3]
	}
	m, ok := monthAbbrev[key]
	if !ok {
		return model.NotAvailable
	}
	t := time.Date(now.Year(), m, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != m {
		return model.NotAvailable // day out of range for month
	}
	if t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t.Format("2006-01-02 15:04:05")
}
