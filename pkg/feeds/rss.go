package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/marktblick/finanzpuls/internal/domain"
	"github.com/marktblick/finanzpuls/pkg/httpclient"
)

// rssFetcher fetches RSS 2.0 documents and maps their items onto RawArticles.
type rssFetcher struct {
	client httpclient.Client
}

// NewRSSFetcher builds the standard RSS feed fetcher.
func NewRSSFetcher(client httpclient.Client) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &rssFetcher{client: client}
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// Fetch retrieves and decodes the source's RSS feed.
func (f *rssFetcher) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawArticle, error) {
	if strings.TrimSpace(source.URL) == "" {
		return nil, fmt.Errorf("source %q url is empty", source.ID)
	}

	resp, err := f.client.Get(ctx, source.URL, source.Headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", source.ID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s feed returned status %d body: %s", source.ID, resp.StatusCode(), responseSnippet(body))
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode %s rss feed: %w", source.ID, err)
	}

	articles := buildArticlesFromFeed(source, doc.Channel.Items)
	if len(articles) == 0 {
		return nil, fmt.Errorf("%s feed returned no records", source.ID)
	}
	return articles, nil
}

// buildArticlesFromFeed maps feed items onto RawArticles, stamping the
// source's name, category and language onto every entry.
func buildArticlesFromFeed(source domain.FeedSource, items []rssItem) []domain.RawArticle {
	articles := make([]domain.RawArticle, 0, len(items))
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if link == "" || title == "" {
			continue
		}

		articles = append(articles, domain.RawArticle{
			ID:        hashURL(link),
			Title:     title,
			Summary:   stripHTML(item.Description),
			Source:    source.Name,
			URL:       link,
			Published: parsePubDate(item.PubDate),
			Language:  source.Language,
			Category:  source.Category,
		})
	}
	return articles
}
