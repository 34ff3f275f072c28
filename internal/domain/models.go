package domain

import "time"

// Domain contains the core models shared across the aggregation pipeline.

// Sentiment is the coarse polarity of an article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Impact buckets an article's financial score.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Category tags carried by feed sources. "all" is only valid as a filter.
const (
	CategoryAll      = "all"
	CategoryMarket   = "market"
	CategoryCrypto   = "crypto"
	CategoryForex    = "forex"
	CategoryGeneral  = "general"
	CategoryRegional = "regional"
	CategoryTech     = "tech"
)

// KnownCategory reports whether tag is one of the defined source categories.
func KnownCategory(tag string) bool {
	switch tag {
	case CategoryMarket, CategoryCrypto, CategoryForex, CategoryGeneral, CategoryRegional, CategoryTech:
		return true
	}
	return false
}

// FeedSource is a configured content origin. Instances are created at config
// load time and never mutated; registry order is the merge order for a run.
type FeedSource struct {
	ID       string
	Name     string
	URL      string
	Category string
	Language string
	Headers  map[string]string
}

// RawArticle is one parsed entry as delivered by a source fetcher.
type RawArticle struct {
	ID        string
	Title     string
	Summary   string
	Source    string
	URL       string
	Published time.Time
	Language  string
	Category  string
}

// ScoredArticle is a RawArticle enriched by the scoring engine.
type ScoredArticle struct {
	RawArticle

	FinancialScore int
	RelevanceScore int
	Sentiment      Sentiment
	Impact         Impact
}

// Query holds the caller-supplied parameters of one aggregation run.
type Query struct {
	Category string
	Limit    int
	Language string
}

// RunStats summarizes one aggregation run over its final article set.
type RunStats struct {
	TotalProcessed    int
	TotalUnique       int
	TotalReturned     int
	HighImpact        int
	PositiveSentiment int
	Sources           []string
	Timestamp         time.Time
}

// Result is the outcome of a successful aggregation run.
type Result struct {
	Articles []ScoredArticle
	Stats    RunStats
}
