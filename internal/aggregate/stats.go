package aggregate

import (
	"time"

	"github.com/marktblick/finanzpuls/internal/domain"
)

// Summarize computes the run statistics over the final article sequence.
// Pure function: processed and unique are the pre- and post-dedup counts
// recorded by the pipeline, now stamps the run.
func Summarize(final []domain.ScoredArticle, processed, unique int, now time.Time) domain.RunStats {
	stats := domain.RunStats{
		TotalProcessed: processed,
		TotalUnique:    unique,
		TotalReturned:  len(final),
		Timestamp:      now,
	}

	seen := make(map[string]struct{}, len(final))
	for _, a := range final {
		if a.Impact == domain.ImpactHigh {
			stats.HighImpact++
		}
		if a.Sentiment == domain.SentimentPositive {
			stats.PositiveSentiment++
		}
		if _, ok := seen[a.Source]; !ok {
			seen[a.Source] = struct{}{}
			stats.Sources = append(stats.Sources, a.Source)
		}
	}

	return stats
}
