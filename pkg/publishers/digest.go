package publishers

import (
	"context"
	"time"
)

// Digest is the event pushed to downstream sinks after an aggregation run:
// the run statistics plus the top-ranked headlines.
type Digest struct {
	Category    string           `json:"category"`
	Language    string           `json:"language"`
	GeneratedAt time.Time        `json:"generated_at"`
	Processed   int              `json:"total_processed"`
	Unique      int              `json:"total_unique"`
	Returned    int              `json:"total_returned"`
	HighImpact  int              `json:"high_impact"`
	Sources     []string         `json:"sources"`
	Headlines   []DigestHeadline `json:"headlines"`
}

// DigestHeadline is one ranked article inside a digest.
type DigestHeadline struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Source         string `json:"source"`
	URL            string `json:"url"`
	RelevanceScore int    `json:"relevance_score"`
	Sentiment      string `json:"sentiment"`
	ImpactLevel    string `json:"impact_level"`
}

// Publisher delivers digests to one configured sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, d Digest) error
}

// Logger is the minimal logging surface the publishers need.
type Logger interface {
	DebugObj(msg, event string, fields map[string]any)
	InfoObj(msg, event string, fields map[string]any)
	WarnObj(msg, event string, fields map[string]any)
	ErrorObj(msg, event string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, map[string]any) {}
func (nopLogger) InfoObj(string, string, map[string]any)  {}
func (nopLogger) WarnObj(string, string, map[string]any)  {}
func (nopLogger) ErrorObj(string, string, map[string]any) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}
