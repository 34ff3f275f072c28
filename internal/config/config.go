package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process configuration, loaded from environment variables
// (prefix FINANZPULS_) with optional overrides from a config file.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	DefaultLanguage string        `mapstructure:"default_language"`
	DefaultLimit    int           `mapstructure:"default_limit"`
	MaxLimit        int           `mapstructure:"max_limit"`
	SourceTimeout   time.Duration `mapstructure:"source_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	SourcesFile     string        `mapstructure:"sources_file"`
	PublishersFile  string        `mapstructure:"publishers_file"`
	LedgerFile      string        `mapstructure:"ledger_file"`
	DigestSize      int           `mapstructure:"digest_size"`
	EnrichSummaries bool          `mapstructure:"enrich_summaries"`
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("default_language", "de")
	v.SetDefault("default_limit", 20)
	v.SetDefault("max_limit", 100)
	v.SetDefault("source_timeout", 10*time.Second)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("sources_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("ledger_file", "finanzpuls.db")
	v.SetDefault("digest_size", 5)
	v.SetDefault("enrich_summaries", false)

	v.SetEnvPrefix("finanzpuls")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen_addr must not be empty")
	}
	if len(c.DefaultLanguage) != 2 {
		return fmt.Errorf("default_language must be a two-letter tag, got %q", c.DefaultLanguage)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must not be below default_limit (%d)", c.MaxLimit, c.DefaultLimit)
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("source_timeout must be positive, got %s", c.SourceTimeout)
	}
	if c.RequestTimeout < c.SourceTimeout {
		return fmt.Errorf("request_timeout (%s) must not be below source_timeout (%s)", c.RequestTimeout, c.SourceTimeout)
	}
	if c.DigestSize < 0 {
		return fmt.Errorf("digest_size must not be negative, got %d", c.DigestSize)
	}
	return nil
}
