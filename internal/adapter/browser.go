package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/amishk599/jobsignal/internal/model"
)

// Renderer returns the fully rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// BrowserSource reads the listing pages through a headless browser, for
// when the plain HTML response is incomplete.
type BrowserSource struct {
	crawler  listingCrawler
	renderer Renderer
	limiter  PageLimiter
}

// NewBrowserSource creates a source that renders listingURL with renderer.
func NewBrowserSource(listingURL string, maxPages int, filter model.RecordFilter, renderer Renderer, limiter PageLimiter) *BrowserSource {
	s := &BrowserSource{renderer: renderer, limiter: limiter}
	s.crawler = listingCrawler{
		listingURL: listingURL,
		maxPages:   maxPages,
		filter:     filter,
		load:       s.loadPage,
		source:     "browser",
		now:        time.Now,
	}
	return s
}

// FetchJobs walks every rendered listing page and returns the kept records.
func (s *BrowserSource) FetchJobs(ctx context.Context) ([]model.RawJobRecord, error) {
	if cr, ok := s.renderer.(*ChromeRenderer); ok {
		stop, err := cr.start(ctx)
		if err != nil {
			return nil, err
		}
		defer stop()
	}
	return s.crawler.crawl(ctx)
}

func (s *BrowserSource) loadPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, pageURL); err != nil {
			return nil, fmt.Errorf("browser %s: %w", pageURL, err)
		}
	}
	html, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("browser %s: parse html: %w", pageURL, err)
	}
	return doc, nil
}

// ChromeRenderer drives a headless Chrome through chromedp. One browser is
// started per FetchJobs and reused for every page.
type ChromeRenderer struct {
	timeout   time.Duration
	waitFor   string
	browser   context.Context
	cancelAll func()
}

// NewChromeRenderer returns a renderer that waits for waitFor (a CSS
// selector, "body" if empty) before capturing the page.
func NewChromeRenderer(timeout time.Duration, waitFor string) *ChromeRenderer {
	if waitFor == "" {
		waitFor = "body"
	}
	return &ChromeRenderer{timeout: timeout, waitFor: waitFor}
}

func (r *ChromeRenderer) start(ctx context.Context) (func(), error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	// Run with no actions launches the browser so start-up errors surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start headless browser: %w", err)
	}
	r.browser = browserCtx
	r.cancelAll = func() {
		cancelBrowser()
		cancelAlloc()
	}
	return func() {
		r.cancelAll()
		r.browser = nil
	}, nil
}

// Render navigates to pageURL and returns the outer HTML once waitFor is ready.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	if r.browser == nil {
		stop, err := r.start(ctx)
		if err != nil {
			return "", err
		}
		defer stop()
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browser)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(r.waitFor, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser render %s: %w", pageURL, err)
	}
	return html, nil
}
