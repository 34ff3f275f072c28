package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marktblick/finanzpuls/internal/dedup"
	"github.com/marktblick/finanzpuls/internal/domain"
	"github.com/marktblick/finanzpuls/internal/logger"
	"github.com/marktblick/finanzpuls/internal/metrics"
	"github.com/marktblick/finanzpuls/internal/scoring"
	"github.com/marktblick/finanzpuls/pkg/feeds"
)

const (
	// DefaultLimit applies when a query carries no usable limit.
	DefaultLimit = 20

	defaultSourceTimeout = 10 * time.Second
)

// ScoringError marks a run-fatal fault inside the scoring stage. Ranking
// guarantees cannot hold once scoring misbehaves, so the whole run fails
// rather than returning a partial result.
type ScoringError struct {
	ArticleID string
	Cause     any
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed on article %s: %v", e.ArticleID, e.Cause)
}

// Aggregator fans out to every registered source, merges the results in
// registry order, scores, deduplicates, filters, ranks and truncates.
type Aggregator struct {
	registry *feeds.Registry
	fetcher  feeds.Fetcher
	engine   *scoring.Engine
	timeout  time.Duration
	log      logger.Logger
	met      *metrics.Metrics
}

// Option tunes an Aggregator.
type Option func(*Aggregator)

// WithSourceTimeout bounds each per-source fetch attempt.
func WithSourceTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the run logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// WithMetrics sets the pipeline instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.met = m
		}
	}
}

// New builds an Aggregator over the given registry, fetcher and engine.
func New(registry *feeds.Registry, fetcher feeds.Fetcher, engine *scoring.Engine, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry: registry,
		fetcher:  fetcher,
		engine:   engine,
		timeout:  defaultSourceTimeout,
		log:      logger.NopLogger{},
		met:      metrics.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// fetchOutcome is one source's settled fetch attempt. Slots isolate the
// concurrent fetches; failures stay local and never cross the fan-out
// boundary as panics or shared errors.
type fetchOutcome struct {
	source   domain.FeedSource
	articles []domain.RawArticle
	err      error
}

// ranked pairs a scored article with its merge-order index, the final
// tie-break of the ranking sort.
type ranked struct {
	art domain.ScoredArticle
	idx int
}

// Run executes one aggregation pass. Per-source failures are absorbed; the
// only run-fatal faults are caller cancellation and scoring failures.
func (a *Aggregator) Run(ctx context.Context, q domain.Query) (domain.Result, error) {
	started := time.Now()
	a.met.RunsTotal.Inc()

	q = normalizeQuery(q)

	outcomes := a.fanOut(ctx)
	if err := ctx.Err(); err != nil {
		a.met.RunFailures.Inc()
		return domain.Result{}, fmt.Errorf("aggregation cancelled: %w", err)
	}

	merged := a.merge(outcomes)
	a.met.ArticlesProcessed.Add(float64(len(merged)))

	scored, err := a.enrich(merged, q.Language)
	if err != nil {
		a.met.RunFailures.Inc()
		a.log.ErrorObj("aggregation run failed in scoring", "run_scoring_error", map[string]any{
			"error": err.Error(),
		})
		return domain.Result{}, err
	}

	// Collapsing over ranked entries keeps each survivor's merge-order
	// index, which the ranking sort needs as its final tie-break.
	unique := dedup.Collapse(scored, func(r ranked) string { return dedup.Key(r.art.Title) })
	filtered := filterCategory(unique, q.Category)
	rankArticles(filtered)

	final := stripIndex(truncate(filtered, q.Limit))
	stats := Summarize(final, len(scored), len(unique), time.Now().UTC())

	a.met.RunDuration.Observe(time.Since(started).Seconds())
	a.log.InfoObj("aggregation run complete", "run_complete", map[string]any{
		"category":  q.Category,
		"language":  q.Language,
		"limit":     q.Limit,
		"processed": stats.TotalProcessed,
		"unique":    stats.TotalUnique,
		"returned":  stats.TotalReturned,
	})

	return domain.Result{Articles: final, Stats: stats}, nil
}

// fanOut issues one concurrent fetch per registered source. Each attempt
// writes only its own slot, so no locking is needed; the WaitGroup is the
// collect-then-merge barrier.
func (a *Aggregator) fanOut(ctx context.Context) []fetchOutcome {
	sources := a.registry.Sources()
	outcomes := make([]fetchOutcome, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src domain.FeedSource) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			articles, err := a.fetcher.Fetch(fetchCtx, src)
			outcomes[i] = fetchOutcome{source: src, articles: articles, err: err}
		}(i, src)
	}
	wg.Wait()

	return outcomes
}

// merge flattens successful outcomes in registry order. Order matters:
// first-wins deduplication keys off it.
func (a *Aggregator) merge(outcomes []fetchOutcome) []domain.RawArticle {
	var merged []domain.RawArticle
	for _, oc := range outcomes {
		if oc.err != nil {
			a.met.FetchFailures.WithLabelValues(oc.source.ID).Inc()
			a.log.WarnObj("source fetch failed, skipping", "source_fetch_error", map[string]any{
				"source_id": oc.source.ID,
				"url":       oc.source.URL,
				"error":     oc.err.Error(),
			})
			continue
		}
		merged = append(merged, oc.articles...)
	}
	return merged
}

// enrich scores every merged article. A panic inside the scoring stage is
// converted into a run-fatal ScoringError.
func (a *Aggregator) enrich(merged []domain.RawArticle, lang string) (out []ranked, err error) {
	current := ""
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &ScoringError{ArticleID: current, Cause: r}
		}
	}()

	out = make([]ranked, 0, len(merged))
	for i, raw := range merged {
		current = raw.ID
		financial, sentiment, impact := a.engine.Score(raw.Title, raw.Summary)

		out = append(out, ranked{
			idx: i,
			art: domain.ScoredArticle{
				RawArticle:     raw,
				FinancialScore: financial,
				RelevanceScore: scoring.RelevanceScore(financial, raw.Language, lang),
				Sentiment:      sentiment,
				Impact:         impact,
			},
		})
	}
	return out, nil
}

// filterCategory keeps articles whose category matches exactly; "all"
// passes everything.
func filterCategory(articles []ranked, category string) []ranked {
	if category == domain.CategoryAll {
		return articles
	}
	out := make([]ranked, 0, len(articles))
	for _, r := range articles {
		if r.art.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// rankArticles sorts by relevance descending, then published descending,
// then merge-order index ascending. The comparator is total, so equal-score
// equal-timestamp articles still land in a reproducible order.
func rankArticles(articles []ranked) {
	sort.Slice(articles, func(i, j int) bool {
		ai, aj := articles[i], articles[j]
		if ai.art.RelevanceScore != aj.art.RelevanceScore {
			return ai.art.RelevanceScore > aj.art.RelevanceScore
		}
		if !ai.art.Published.Equal(aj.art.Published) {
			return ai.art.Published.After(aj.art.Published)
		}
		return ai.idx < aj.idx
	})
}

// truncate bounds the result to limit entries. A limit of zero yields an
// empty result; negative limits were normalized away earlier.
func truncate(articles []ranked, limit int) []ranked {
	if limit >= len(articles) {
		return articles
	}
	return articles[:limit]
}

func stripIndex(articles []ranked) []domain.ScoredArticle {
	out := make([]domain.ScoredArticle, len(articles))
	for i, r := range articles {
		out[i] = r.art
	}
	return out
}

// normalizeQuery applies defaults: empty category means "all", negative
// limits fall back to DefaultLimit, tags are case-folded.
func normalizeQuery(q domain.Query) domain.Query {
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	if q.Category == "" {
		q.Category = domain.CategoryAll
	}
	if q.Limit < 0 {
		q.Limit = DefaultLimit
	}
	q.Language = strings.ToLower(strings.TrimSpace(q.Language))
	return q
}
