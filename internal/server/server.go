package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marktblick/finanzpuls/internal/domain"
	"github.com/marktblick/finanzpuls/internal/logger"
	"github.com/marktblick/finanzpuls/pkg/feeds"
)

// apiCost is informational: the configured feeds are free pulls.
const apiCost = "0.00 EUR"

// Runner executes one aggregation pass.
type Runner interface {
	Run(ctx context.Context, q domain.Query) (domain.Result, error)
}

// Options carries the request-handling defaults.
type Options struct {
	DefaultLanguage string
	DefaultLimit    int
	MaxLimit        int
	RequestTimeout  time.Duration
}

// Server exposes the aggregation pipeline over HTTP.
type Server struct {
	runner   Runner
	registry *feeds.Registry
	opts     Options
	log      logger.Logger
	// onResult, when set, receives every successful run outside the
	// request path (digest publishing).
	onResult func(domain.Result, domain.Query)
}

// New builds a Server. onResult may be nil.
func New(runner Runner, registry *feeds.Registry, opts Options, log logger.Logger, onResult func(domain.Result, domain.Query)) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 20
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{runner: runner, registry: registry, opts: opts, log: log, onResult: onResult}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/v1/news", s.handleNews)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"sources": s.registry.Len(),
	})
}

// handleNews serves the aggregation query call.
func (s *Server) handleNews(c *gin.Context) {
	q := s.parseQuery(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()

	result, err := s.runner.Run(ctx, q)
	if err != nil {
		s.log.ErrorObj("news request failed", "api_news_error", map[string]any{
			"category": q.Category,
			"language": q.Language,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, failureResponse(err))
		return
	}

	if s.onResult != nil {
		go s.onResult(result, q)
	}

	c.JSON(http.StatusOK, s.successResponse(result))
}

// parseQuery applies the request defaults. Unparseable limits fall back to
// the default; an explicit 0 stays 0 and yields an empty result.
func (s *Server) parseQuery(c *gin.Context) domain.Query {
	q := domain.Query{
		Category: strings.ToLower(strings.TrimSpace(c.DefaultQuery("category", domain.CategoryAll))),
		Language: strings.ToLower(strings.TrimSpace(c.DefaultQuery("language", s.opts.DefaultLanguage))),
		Limit:    s.opts.DefaultLimit,
	}
	if q.Category == "" {
		q.Category = domain.CategoryAll
	}
	if len(q.Language) != 2 {
		q.Language = s.opts.DefaultLanguage
	}

	if raw, ok := c.GetQuery("limit"); ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			q.Limit = n
		}
	}
	if q.Limit > s.opts.MaxLimit {
		q.Limit = s.opts.MaxLimit
	}

	return q
}

type articleResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	Source         string `json:"source"`
	Published      string `json:"published"`
	FinancialScore int    `json:"financial_score"`
	RelevanceScore int    `json:"relevance_score"`
	Sentiment      string `json:"sentiment"`
	URL            string `json:"url"`
	Category       string `json:"category"`
	ImpactLevel    string `json:"impact_level"`
	Language       string `json:"language"`
}

type statsResponse struct {
	TotalProcessed    int      `json:"total_processed"`
	TotalUnique       int      `json:"total_unique"`
	TotalReturned     int      `json:"total_returned"`
	HighImpact        int      `json:"high_impact"`
	PositiveSentiment int      `json:"positive_sentiment"`
	Sources           []string `json:"sources"`
	APICost           string   `json:"api_cost"`
	ProcessingTime    string   `json:"processing_time"`
}

type newsResponse struct {
	Success     bool              `json:"success"`
	Articles    []articleResponse `json:"articles"`
	Stats       statsResponse     `json:"stats"`
	Sources     []string          `json:"sources"`
	LastUpdated string            `json:"last_updated"`
	Message     string            `json:"message"`
}

type errorResponse struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error"`
	Articles    []articleResponse `json:"articles"`
	Cost        string            `json:"cost"`
	Message     string            `json:"message"`
	LastUpdated string            `json:"last_updated"`
}

func (s *Server) successResponse(result domain.Result) newsResponse {
	articles := make([]articleResponse, 0, len(result.Articles))
	for _, a := range result.Articles {
		published := ""
		if !a.Published.IsZero() {
			published = a.Published.UTC().Format(time.RFC3339)
		}
		articles = append(articles, articleResponse{
			ID:             a.ID,
			Title:          a.Title,
			Summary:        a.Summary,
			Source:         a.Source,
			Published:      published,
			FinancialScore: a.FinancialScore,
			RelevanceScore: a.RelevanceScore,
			Sentiment:      string(a.Sentiment),
			URL:            a.URL,
			Category:       a.Category,
			ImpactLevel:    string(a.Impact),
			Language:       a.Language,
		})
	}

	labels := make([]string, 0, s.registry.Len())
	for _, src := range s.registry.Sources() {
		labels = append(labels, src.Name)
	}

	statsSources := result.Stats.Sources
	if statsSources == nil {
		statsSources = []string{}
	}

	now := result.Stats.Timestamp.Format(time.RFC3339)

	return newsResponse{
		Success:  true,
		Articles: articles,
		Stats: statsResponse{
			TotalProcessed:    result.Stats.TotalProcessed,
			TotalUnique:       result.Stats.TotalUnique,
			TotalReturned:     result.Stats.TotalReturned,
			HighImpact:        result.Stats.HighImpact,
			PositiveSentiment: result.Stats.PositiveSentiment,
			Sources:           statsSources,
			APICost:           apiCost,
			ProcessingTime:    now,
		},
		Sources:     labels,
		LastUpdated: now,
		Message:     fmt.Sprintf("%d articles from %d sources", len(articles), len(statsSources)),
	}
}

func failureResponse(err error) errorResponse {
	code := "aggregation_failed"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		code = "request_cancelled"
	}
	return errorResponse{
		Success:     false,
		Error:       code,
		Articles:    []articleResponse{},
		Cost:        apiCost,
		Message:     "news aggregation failed, no articles returned",
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
}
