package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marktblick/finanzpuls/internal/domain"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRegistry_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("FEEDS_TEST_TOKEN", "geheim")

	path := writeTempFile(t, "sources.yaml", `
sources:
  - id: Boerse-Online
    name: Börse Online
    url: https://www.boerse-online.de/rss/nachrichten
    category: market
    language: de
    headers:
      Authorization: "Bearer ${FEEDS_TEST_TOKEN}"
  - id: coindesk
    name: CoinDesk
    url: https://www.coindesk.com/arc/outboundfeeds/rss/
    category: crypto
    language: en
`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	sources := reg.Sources()
	require.Equal(t, "boerse-online", sources[0].ID)
	require.Equal(t, "Bearer geheim", sources[0].Headers["Authorization"])
	require.Equal(t, "coindesk", sources[1].ID)
}

func TestLoadRegistry_JSON(t *testing.T) {
	path := writeTempFile(t, "sources.json", `{
  "sources": [
    {"id": "fxstreet", "name": "FXStreet", "url": "https://www.fxstreet.com/rss/news", "category": "forex", "language": "en"}
  ]
}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())
	require.Equal(t, domain.CategoryForex, reg.Sources()[0].Category)
}

func TestLoadRegistry_Errors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := LoadRegistry("  ")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("unrecognized format", func(t *testing.T) {
		path := writeTempFile(t, "sources.json", "not json at all")
		_, err := LoadRegistry(path)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not recognized")
	})
}

func TestNewRegistry_Validation(t *testing.T) {
	valid := SourceConfig{
		ID: "ok", Name: "OK", URL: "https://ok.example.com/rss",
		Category: domain.CategoryMarket, Language: "de",
	}

	cases := []struct {
		name    string
		mutate  func(SourceConfig) SourceConfig
		wantErr string
	}{
		{name: "missing id", mutate: func(c SourceConfig) SourceConfig { c.ID = ""; return c }, wantErr: "id is required"},
		{name: "missing name", mutate: func(c SourceConfig) SourceConfig { c.Name = " "; return c }, wantErr: "name is required"},
		{name: "missing url", mutate: func(c SourceConfig) SourceConfig { c.URL = ""; return c }, wantErr: "url is required"},
		{name: "invalid url", mutate: func(c SourceConfig) SourceConfig { c.URL = "::"; return c }, wantErr: "url is invalid"},
		{name: "unknown category", mutate: func(c SourceConfig) SourceConfig { c.Category = "sport"; return c }, wantErr: "not supported"},
		{name: "bad language", mutate: func(c SourceConfig) SourceConfig { c.Language = "ger"; return c }, wantErr: "two-letter"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry([]SourceConfig{tc.mutate(valid)})
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		_, err := NewRegistry([]SourceConfig{valid, valid})
		require.Error(t, err)
		require.Contains(t, err.Error(), "duplicate source id")
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := NewRegistry(nil)
		require.Error(t, err)
	})
}

func TestRegistry_SourcesReturnsCopy(t *testing.T) {
	reg, err := NewRegistry([]SourceConfig{
		{ID: "a", Name: "A", URL: "https://a.example.com/rss", Category: domain.CategoryMarket, Language: "de"},
	})
	require.NoError(t, err)

	sources := reg.Sources()
	sources[0].Name = "mutated"
	require.Equal(t, "A", reg.Sources()[0].Name)
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	require.Equal(t, 6, reg.Len())
	for _, src := range reg.Sources() {
		require.True(t, domain.KnownCategory(src.Category), "source %s", src.ID)
		require.Len(t, src.Language, 2, "source %s", src.ID)
	}
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>DAX steigt um 2 Prozent</title>
      <description>&lt;p&gt;Der Leitindex legt&amp;nbsp;deutlich zu.&lt;/p&gt;</description>
      <link>https://feed.example.com/dax-steigt</link>
      <pubDate>Mon, 02 Jun 2025 09:30:00 +0200</pubDate>
    </item>
    <item>
      <title></title>
      <description>kein Titel, wird verworfen</description>
      <link>https://feed.example.com/ohne-titel</link>
    </item>
    <item>
      <title>Bitcoin unter Druck</title>
      <description></description>
      <link>https://feed.example.com/bitcoin</link>
      <pubDate>kein Datum</pubDate>
    </item>
  </channel>
</rss>`

func testSource(url string) domain.FeedSource {
	return domain.FeedSource{
		ID:       "test-feed",
		Name:     "Test Feed",
		URL:      url,
		Category: domain.CategoryMarket,
		Language: "de",
	}
}

func TestRSSFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "token", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	src := testSource(srv.URL)
	src.Headers = map[string]string{"X-Api-Key": "token"}

	fetcher := NewRSSFetcher(DefaultHTTPClient())
	articles, err := fetcher.Fetch(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	require.Equal(t, hashURL("https://feed.example.com/dax-steigt"), first.ID)
	require.Equal(t, "DAX steigt um 2 Prozent", first.Title)
	require.Equal(t, "Der Leitindex legt deutlich zu.", first.Summary)
	require.Equal(t, "Test Feed", first.Source)
	require.Equal(t, domain.CategoryMarket, first.Category)
	require.Equal(t, "de", first.Language)
	require.False(t, first.Published.IsZero())

	// Unparseable pubDate falls back to the zero time.
	require.True(t, articles[1].Published.IsZero())
}

func TestRSSFetcher_FetchErrors(t *testing.T) {
	t.Run("empty url", func(t *testing.T) {
		fetcher := NewRSSFetcher(DefaultHTTPClient())
		_, err := fetcher.Fetch(context.Background(), domain.FeedSource{ID: "leer"})
		require.Error(t, err)
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream kaputt", http.StatusBadGateway)
		}))
		defer srv.Close()

		fetcher := NewRSSFetcher(DefaultHTTPClient())
		_, err := fetcher.Fetch(context.Background(), testSource(srv.URL))
		require.Error(t, err)
		require.Contains(t, err.Error(), "status 502")
		require.Contains(t, err.Error(), "upstream kaputt")
	})

	t.Run("invalid xml", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{\"not\": \"xml\"}"))
		}))
		defer srv.Close()

		fetcher := NewRSSFetcher(DefaultHTTPClient())
		_, err := fetcher.Fetch(context.Background(), testSource(srv.URL))
		require.Error(t, err)
	})

	t.Run("empty feed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>leer</title></channel></rss>`))
		}))
		defer srv.Close()

		fetcher := NewRSSFetcher(DefaultHTTPClient())
		_, err := fetcher.Fetch(context.Background(), testSource(srv.URL))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no records")
	})
}

func TestParsePubDate(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		zero bool
	}{
		{name: "rfc1123z", raw: "Mon, 02 Jun 2025 09:30:00 +0200"},
		{name: "rfc1123", raw: "Mon, 02 Jun 2025 09:30:00 CET"},
		{name: "rfc3339", raw: "2025-06-02T09:30:00+02:00"},
		{name: "single digit day", raw: "Mon, 2 Jun 2025 09:30:00 +0200"},
		{name: "empty", raw: "", zero: true},
		{name: "garbage", raw: "gestern Nachmittag", zero: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parsePubDate(tc.raw)
			require.Equal(t, tc.zero, got.IsZero())
			if !tc.zero {
				require.Equal(t, 2025, got.Year())
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Nur Text", want: "Nur Text"},
		{name: "tags removed", in: "<p>Der <b>DAX</b> steigt.</p>", want: "Der DAX steigt."},
		{name: "breaks become spaces", in: "erste Zeile<br>zweite Zeile", want: "erste Zeile zweite Zeile"},
		{name: "nbsp and whitespace collapse", in: "a&nbsp;&nbsp;b \n\t c", want: "a b c"},
		{name: "empty", in: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, stripHTML(tc.in))
		})
	}
}

func TestHashURL(t *testing.T) {
	a := hashURL("https://example.com/a")
	require.Len(t, a, 40)
	require.Equal(t, a, hashURL("https://example.com/a"))
	require.NotEqual(t, a, hashURL("https://example.com/b"))
}

func TestResponseSnippet(t *testing.T) {
	require.Equal(t, "<empty>", responseSnippet(nil))
	require.Equal(t, "kurz", responseSnippet([]byte("  kurz  ")))

	long := strings.Repeat("x", 600)
	got := responseSnippet([]byte(long))
	require.Len(t, got, 512+len("..."))
	require.True(t, strings.HasSuffix(got, "..."))
}
