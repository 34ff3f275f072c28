package publishers

import (
	"context"
	"time"

	"github.com/marktblick/finanzpuls/internal/domain"
)

const dispatchTimeout = 15 * time.Second

// Dispatcher fans a run digest out to every configured sink. Sink failures
// are logged and never propagate; the API response has long been written by
// the time a digest goes out.
type Dispatcher struct {
	publishers []Publisher
	ledger     *Ledger
	size       int
	log        Logger
}

// NewDispatcher builds a Dispatcher. ledger may be nil, in which case every
// digest carries the full top-N regardless of earlier runs.
func NewDispatcher(pubs []Publisher, ledger *Ledger, digestSize int, log Logger) *Dispatcher {
	if digestSize <= 0 {
		digestSize = 5
	}
	return &Dispatcher{
		publishers: pubs,
		ledger:     ledger,
		size:       digestSize,
		log:        ensureLogger(log),
	}
}

// DigestFrom converts a run result into a digest capped at size headlines.
func DigestFrom(result domain.Result, q domain.Query, size int) Digest {
	headlines := make([]DigestHeadline, 0, size)
	for _, a := range result.Articles {
		if len(headlines) == size {
			break
		}
		headlines = append(headlines, DigestHeadline{
			ID:             a.ID,
			Title:          a.Title,
			Source:         a.Source,
			URL:            a.URL,
			RelevanceScore: a.RelevanceScore,
			Sentiment:      string(a.Sentiment),
			ImpactLevel:    string(a.Impact),
		})
	}

	return Digest{
		Category:    q.Category,
		Language:    q.Language,
		GeneratedAt: result.Stats.Timestamp,
		Processed:   result.Stats.TotalProcessed,
		Unique:      result.Stats.TotalUnique,
		Returned:    result.Stats.TotalReturned,
		HighImpact:  result.Stats.HighImpact,
		Sources:     result.Stats.Sources,
		Headlines:   headlines,
	}
}

// Dispatch filters already-published headlines through the ledger and sends
// the digest to every sink. Empty digests are skipped.
func (d *Dispatcher) Dispatch(result domain.Result, q domain.Query) {
	if len(d.publishers) == 0 {
		return
	}

	digest := DigestFrom(result, q, d.size)

	if d.ledger != nil {
		fresh, err := d.ledger.FilterNew(digest.Headlines)
		if err != nil {
			d.log.WarnObj("digest ledger read failed, sending full digest", "digest_ledger_error", map[string]any{
				"error": err.Error(),
			})
		} else {
			digest.Headlines = fresh
		}
	}

	if len(digest.Headlines) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	delivered := false
	for _, pub := range d.publishers {
		if err := pub.Publish(ctx, digest); err != nil {
			d.log.WarnObj("digest delivery failed", "digest_publish_error", map[string]any{
				"publisher_id": pub.ID(),
				"type":         pub.Type(),
				"error":        err.Error(),
			})
			continue
		}
		delivered = true
	}

	if delivered && d.ledger != nil {
		if err := d.ledger.Record(digest.Headlines); err != nil {
			d.log.WarnObj("digest ledger write failed", "digest_ledger_error", map[string]any{
				"error": err.Error(),
			})
		}
	}
}
