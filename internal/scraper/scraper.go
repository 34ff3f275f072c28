package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/marktblick/finanzpuls/internal/domain"
	"github.com/marktblick/finanzpuls/internal/logger"
	"github.com/marktblick/finanzpuls/pkg/feeds"
	"github.com/marktblick/finanzpuls/pkg/httpclient"
)

const (
	maxHTMLBodyBytes  = 1 << 20 // 1 MiB
	maxArticleWorkers = 10
)

// Scraper fills in missing article summaries by scraping page metadata.
// Feed entries frequently omit descriptions; without a summary the scoring
// engine only sees the headline.
type Scraper struct {
	client httpclient.Client
	delay  time.Duration
	log    logger.Logger
}

// New creates a Scraper with the given HTTP client, per-request delay and
// logger.
func New(client httpclient.Client, delay time.Duration, log logger.Logger) *Scraper {
	if client == nil {
		client = feeds.DefaultHTTPClient()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scraper{client: client, delay: delay, log: log}
}

// Enrich returns a copy of articles where entries without a summary carry
// the page's og:description when one could be scraped. Failures leave the
// original entry untouched; on cancel the partial result is returned.
func (s *Scraper) Enrich(ctx context.Context, source domain.FeedSource, articles []domain.RawArticle) []domain.RawArticle {
	out := make([]domain.RawArticle, len(articles))
	copy(out, articles)

	var pending []int
	for i, a := range articles {
		if strings.TrimSpace(a.Summary) == "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out
	}

	workerCount := len(pending)
	if workerCount > maxArticleWorkers {
		workerCount = maxArticleWorkers
	}

	var limiter <-chan time.Time
	if s.delay > 0 {
		ticker := time.NewTicker(s.delay)
		limiter = ticker.C
		defer ticker.Stop()
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := 0; workerID < workerCount; workerID++ {
		wg.Add(1)
		go s.articleWorker(ctx, source, limiter, jobCh, out, &wg, workerID)
	}

	// The send must also watch ctx: workers parked in the limiter select
	// exit on cancel without draining jobCh, and an unguarded send would
	// then block forever.
feed:
	for _, idx := range pending {
		select {
		case jobCh <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)

	wg.Wait()

	return out
}

// articleWorker processes indices from the job channel, respecting the rate
// limiter, writing only its own slots of out.
func (s *Scraper) articleWorker(
	ctx context.Context,
	source domain.FeedSource,
	limiter <-chan time.Time,
	jobCh <-chan int,
	out []domain.RawArticle,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			return
		}

		if limiter != nil {
			select {
			case <-ctx.Done():
				return
			case <-limiter:
			}
		}

		art := out[idx]
		summary, err := s.fetchSummary(ctx, source, art.URL)
		if err != nil {
			s.log.WarnObj("article summary scrape failed", "summary_scrape_error", map[string]any{
				"worker_id": workerID,
				"source_id": source.ID,
				"url":       art.URL,
				"error":     err.Error(),
			})
			continue
		}
		if summary != "" {
			art.Summary = summary
			out[idx] = art
		}
	}
}

// fetchSummary fetches the article page and extracts a description.
func (s *Scraper) fetchSummary(ctx context.Context, source domain.FeedSource, url string) (string, error) {
	resp, err := s.client.Get(ctx, url, source.Headers)
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	return parseDescription(body)
}

// parseDescription extracts og:description (or the description meta tag)
// from the HTML body.
func parseDescription(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	if desc := extract(`meta[property="og:description"]`); desc != "" {
		return desc, nil
	}
	return extract(`meta[name="description"]`), nil
}

// EnrichingFetcher decorates a feeds.Fetcher with summary scraping.
type EnrichingFetcher struct {
	inner   feeds.Fetcher
	scraper *Scraper
}

// NewEnrichingFetcher wraps inner so fetched articles without summaries are
// enriched before they enter the pipeline.
func NewEnrichingFetcher(inner feeds.Fetcher, scraper *Scraper) *EnrichingFetcher {
	return &EnrichingFetcher{inner: inner, scraper: scraper}
}

// Fetch retrieves the source's articles and fills in missing summaries.
func (f *EnrichingFetcher) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawArticle, error) {
	articles, err := f.inner.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return f.scraper.Enrich(ctx, source, articles), nil
}
