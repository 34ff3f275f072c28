package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marktblick/finanzpuls/internal/domain"
)

// Fetcher retrieves the current articles of a single feed source. One fetch
// attempt per source per run; retries are a caller concern.
type Fetcher interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawArticle, error)
}

// Registry holds the immutable, ordered set of configured feed sources.
// Its order defines the merge order of every aggregation run.
type Registry struct {
	sources []domain.FeedSource
}

// Sources returns the configured sources in registry order.
func (r *Registry) Sources() []domain.FeedSource {
	out := make([]domain.FeedSource, len(r.sources))
	copy(out, r.sources)
	return out
}

// Len returns the number of configured sources.
func (r *Registry) Len() int { return len(r.sources) }

// configFile represents the structure of the sources configuration file.
type configFile struct {
	Sources []SourceConfig `json:"sources" yaml:"sources"`
}

type SourceConfig struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	URL      string            `json:"url" yaml:"url"`
	Category string            `json:"category" yaml:"category"`
	Language string            `json:"language" yaml:"language"`
	Headers  map[string]string `json:"headers" yaml:"headers"`
}

// LoadRegistry loads the feed source registry from a YAML/JSON file.
// Environment variable references in the file are expanded before parsing.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(raw)))

	fileReg, err := parseSourceRegistry(expanded, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	return NewRegistry(fileReg.Sources)
}

// NewRegistry validates the given source configs and builds a registry.
func NewRegistry(cfgs []SourceConfig) (*Registry, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("source registry contains no sources")
	}

	reg := &Registry{sources: make([]domain.FeedSource, 0, len(cfgs))}
	seen := make(map[string]struct{}, len(cfgs))

	for i, cfg := range cfgs {
		cfg = sanitizeSourceConfig(cfg)
		if err := validateSourceConfig(cfg); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := seen[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}

		reg.sources = append(reg.sources, domain.FeedSource{
			ID:       cfg.ID,
			Name:     cfg.Name,
			URL:      cfg.URL,
			Category: cfg.Category,
			Language: cfg.Language,
			Headers:  cfg.Headers,
		})
	}

	return reg, nil
}

// parseSourceRegistry attempts to decode the sources file content.
func parseSourceRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg configFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return configFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

// sanitizeSourceConfig trims and normalizes a source entry.
func sanitizeSourceConfig(cfg SourceConfig) SourceConfig {
	cfg.ID = strings.ToLower(strings.TrimSpace(cfg.ID))
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Category = strings.ToLower(strings.TrimSpace(cfg.Category))
	cfg.Language = strings.ToLower(strings.TrimSpace(cfg.Language))

	if len(cfg.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			key := strings.TrimSpace(k)
			val := strings.TrimSpace(v)
			if key == "" || val == "" {
				continue
			}
			headers[key] = val
		}
		if len(headers) == 0 {
			headers = nil
		}
		cfg.Headers = headers
	}

	return cfg
}

// validateSourceConfig checks that required fields are present and sane.
func validateSourceConfig(cfg SourceConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Name == "" {
		return fmt.Errorf("name is required for source %q", cfg.ID)
	}
	if cfg.URL == "" {
		return fmt.Errorf("url is required for source %q", cfg.ID)
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return fmt.Errorf("source %q url is invalid: %w", cfg.ID, err)
	}
	if !domain.KnownCategory(cfg.Category) {
		return fmt.Errorf("source %q category %q is not supported", cfg.ID, cfg.Category)
	}
	if len(cfg.Language) != 2 {
		return fmt.Errorf("source %q language must be a two-letter tag, got %q", cfg.ID, cfg.Language)
	}
	return nil
}

// DefaultRegistry returns the compiled-in source set used when no sources
// file is configured.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry([]SourceConfig{
		{ID: "boerse-online", Name: "Börse Online", URL: "https://www.boerse-online.de/rss/nachrichten", Category: domain.CategoryMarket, Language: "de"},
		{ID: "handelsblatt-finanzen", Name: "Handelsblatt Finanzen", URL: "https://www.handelsblatt.com/contentexport/feed/finanzen", Category: domain.CategoryMarket, Language: "de"},
		{ID: "coindesk", Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/", Category: domain.CategoryCrypto, Language: "en"},
		{ID: "fxstreet", Name: "FXStreet", URL: "https://www.fxstreet.com/rss/news", Category: domain.CategoryForex, Language: "en"},
		{ID: "tagesschau-wirtschaft", Name: "tagesschau Wirtschaft", URL: "https://www.tagesschau.de/wirtschaft/index~rss2.xml", Category: domain.CategoryGeneral, Language: "de"},
		{ID: "heise-wirtschaft", Name: "heise online", URL: "https://www.heise.de/rss/heise-atom.xml", Category: domain.CategoryTech, Language: "de"},
	})
	if err != nil {
		// The compiled-in set is validated by tests; reaching this is a bug.
		panic(err)
	}
	return reg
}
