package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marktblick/finanzpuls/internal/domain"
)

const (
	// MaxFinancialScore caps the keyword/pattern total.
	MaxFinancialScore = 10

	keywordPoints = 1
	patternPoints = 2

	// LanguageBonus is added to the relevance score when an article's
	// language matches the requested one.
	LanguageBonus = 2

	highImpactThreshold   = 7
	mediumImpactThreshold = 4
)

// Engine scores article text against an immutable lexicon. Safe for
// concurrent use.
type Engine struct {
	keywords []string
	patterns []*regexp.Regexp
	positive []string
	negative []string
}

// NewEngine compiles the lexicon into a scoring engine. Keyword and
// sentiment entries are lower-cased once here; scoring lower-cases the
// haystack per call.
func NewEngine(lex Lexicon) (*Engine, error) {
	e := &Engine{
		keywords: lowerAll(lex.Keywords),
		positive: lowerAll(lex.Positive),
		negative: lowerAll(lex.Negative),
		patterns: make([]*regexp.Regexp, 0, len(lex.Patterns)),
	}

	for _, p := range lex.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile lexicon pattern %q: %w", p, err)
		}
		e.patterns = append(e.patterns, re)
	}

	return e, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Score rates the given title and summary. The financial score counts one
// point per keyword substring hit and two per pattern match, clamped to
// [0, MaxFinancialScore]. Sentiment is the lexicon-hit majority with a
// neutral tie-break. Impact is derived from the financial score alone.
func (e *Engine) Score(title, summary string) (int, domain.Sentiment, domain.Impact) {
	text := strings.ToLower(title + " " + summary)

	score := 0
	for _, kw := range e.keywords {
		if strings.Contains(text, kw) {
			score += keywordPoints
		}
	}
	for _, re := range e.patterns {
		if re.MatchString(text) {
			score += patternPoints
		}
	}
	if score > MaxFinancialScore {
		score = MaxFinancialScore
	}

	return score, e.sentiment(text), ImpactFor(score)
}

// sentiment counts positive and negative lexicon hits; ties are neutral.
func (e *Engine) sentiment(text string) domain.Sentiment {
	var pos, neg int
	for _, w := range e.positive {
		if strings.Contains(text, w) {
			pos++
		}
	}
	for _, w := range e.negative {
		if strings.Contains(text, w) {
			neg++
		}
	}

	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// ImpactFor maps a financial score onto its impact bucket.
func ImpactFor(score int) domain.Impact {
	switch {
	case score >= highImpactThreshold:
		return domain.ImpactHigh
	case score >= mediumImpactThreshold:
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}

// RelevanceScore adds the language-match bonus to a financial score. The
// comparison is case-insensitive on the two-letter tags.
func RelevanceScore(financial int, articleLang, requestLang string) int {
	if requestLang != "" && strings.EqualFold(articleLang, requestLang) {
		return financial + LanguageBonus
	}
	return financial
}
