package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marktblick/finanzpuls/internal/domain"
	"github.com/marktblick/finanzpuls/pkg/httpclient"
)

type fakeResponse struct {
	body   []byte
	status int
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }

// fakeClient serves canned pages keyed by URL.
type fakeClient struct {
	pages map[string]fakeResponse
	errs  map[string]error
}

func (c *fakeClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	if err := c.errs[url]; err != nil {
		return nil, err
	}
	resp, ok := c.pages[url]
	if !ok {
		return fakeResponse{status: 404}, nil
	}
	return resp, nil
}

func htmlWithOGDescription(desc string) []byte {
	return []byte(`<html><head><meta property="og:description" content="` + desc + `"/></head><body></body></html>`)
}

func testSource() domain.FeedSource {
	return domain.FeedSource{ID: "test", Name: "Test", Category: domain.CategoryMarket, Language: "de"}
}

func TestParseDescription(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "og description preferred",
			body: `<html><head>
				<meta property="og:description" content="  Aus dem og-Tag  "/>
				<meta name="description" content="Aus dem meta-Tag"/>
			</head></html>`,
			want: "Aus dem og-Tag",
		},
		{
			name: "meta description fallback",
			body: `<html><head><meta name="description" content="Nur meta"/></head></html>`,
			want: "Nur meta",
		},
		{
			name: "no description",
			body: `<html><head><title>Seite</title></head><body>Text</body></html>`,
			want: "",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDescription([]byte(tc.body))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEnrich_FillsMissingSummaries(t *testing.T) {
	client := &fakeClient{
		pages: map[string]fakeResponse{
			"https://x.example.com/1": {body: htmlWithOGDescription("Gescrapte Zusammenfassung"), status: 200},
		},
	}
	s := New(client, 0, nil)

	articles := []domain.RawArticle{
		{ID: "a", Title: "ohne Summary", URL: "https://x.example.com/1"},
		{ID: "b", Title: "mit Summary", URL: "https://x.example.com/2", Summary: "schon da"},
	}

	out := s.Enrich(context.Background(), testSource(), articles)
	require.Len(t, out, 2)
	require.Equal(t, "Gescrapte Zusammenfassung", out[0].Summary)
	require.Equal(t, "schon da", out[1].Summary)

	// The input slice stays untouched.
	require.Empty(t, articles[0].Summary)
}

func TestEnrich_FailuresLeaveArticleUntouched(t *testing.T) {
	client := &fakeClient{
		pages: map[string]fakeResponse{
			"https://x.example.com/500": {body: []byte("kaputt"), status: 500},
		},
		errs: map[string]error{
			"https://x.example.com/err": errors.New("connection reset"),
		},
	}
	s := New(client, 0, nil)

	articles := []domain.RawArticle{
		{ID: "a", Title: "Serverfehler", URL: "https://x.example.com/500"},
		{ID: "b", Title: "Netzfehler", URL: "https://x.example.com/err"},
	}

	out := s.Enrich(context.Background(), testSource(), articles)
	require.Empty(t, out[0].Summary)
	require.Empty(t, out[1].Summary)
}

func TestEnrich_NothingPendingSkipsFetch(t *testing.T) {
	s := New(&fakeClient{}, 0, nil)

	articles := []domain.RawArticle{
		{ID: "a", Summary: "vorhanden"},
	}
	out := s.Enrich(context.Background(), testSource(), articles)
	require.Equal(t, articles, out)
}

func TestEnrich_CancelledContextReturnsPartial(t *testing.T) {
	client := &fakeClient{
		pages: map[string]fakeResponse{
			"https://x.example.com/1": {body: htmlWithOGDescription("egal"), status: 200},
		},
	}
	s := New(client, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := s.Enrich(ctx, testSource(), []domain.RawArticle{
		{ID: "a", URL: "https://x.example.com/1"},
	})
	require.Len(t, out, 1)
	require.Empty(t, out[0].Summary)
}

func TestEnrich_CancelDuringRateDelayReturns(t *testing.T) {
	client := &fakeClient{}
	// A slow rate limiter parks every worker in its limiter wait; the
	// feeder must still unblock when the context ends mid-batch.
	s := New(client, 200*time.Millisecond, nil)

	articles := make([]domain.RawArticle, 0, 40)
	for i := 0; i < 40; i++ {
		articles = append(articles, domain.RawArticle{
			ID:  fmt.Sprintf("a%d", i),
			URL: fmt.Sprintf("https://x.example.com/%d", i),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan []domain.RawArticle, 1)
	go func() { done <- s.Enrich(ctx, testSource(), articles) }()

	select {
	case out := <-done:
		require.Len(t, out, len(articles))
	case <-time.After(3 * time.Second):
		t.Fatal("Enrich did not return after context cancellation")
	}
}

// fetchStub returns fixed articles for the decorator test.
type fetchStub struct {
	articles []domain.RawArticle
	err      error
}

func (f *fetchStub) Fetch(context.Context, domain.FeedSource) ([]domain.RawArticle, error) {
	return f.articles, f.err
}

func TestEnrichingFetcher(t *testing.T) {
	client := &fakeClient{
		pages: map[string]fakeResponse{
			"https://x.example.com/1": {body: htmlWithOGDescription("nachgeladen"), status: 200},
		},
	}

	inner := &fetchStub{articles: []domain.RawArticle{{ID: "a", URL: "https://x.example.com/1"}}}
	f := NewEnrichingFetcher(inner, New(client, 0, nil))

	out, err := f.Fetch(context.Background(), testSource())
	require.NoError(t, err)
	require.Equal(t, "nachgeladen", out[0].Summary)
}

func TestEnrichingFetcher_PropagatesError(t *testing.T) {
	inner := &fetchStub{err: errors.New("feed down")}
	f := NewEnrichingFetcher(inner, New(&fakeClient{}, 0, nil))

	_, err := f.Fetch(context.Background(), testSource())
	require.Error(t, err)
}
