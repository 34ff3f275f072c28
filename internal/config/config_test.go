package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "de", cfg.DefaultLanguage)
	require.Equal(t, 20, cfg.DefaultLimit)
	require.Equal(t, 100, cfg.MaxLimit)
	require.Equal(t, 10*time.Second, cfg.SourceTimeout)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, "finanzpuls.db", cfg.LedgerFile)
	require.Equal(t, 5, cfg.DigestSize)
	require.False(t, cfg.EnrichSummaries)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FINANZPULS_LISTEN_ADDR", ":9999")
	t.Setenv("FINANZPULS_DEFAULT_LANGUAGE", "en")
	t.Setenv("FINANZPULS_DEFAULT_LIMIT", "10")
	t.Setenv("FINANZPULS_ENRICH_SUMMARIES", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Equal(t, "en", cfg.DefaultLanguage)
	require.Equal(t, 10, cfg.DefaultLimit)
	require.True(t, cfg.EnrichSummaries)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":7070"
log_level: debug
default_language: en
default_limit: 15
max_limit: 30
source_timeout: 5s
request_timeout: 20s
digest_size: 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.ListenAddr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 15, cfg.DefaultLimit)
	require.Equal(t, 30, cfg.MaxLimit)
	require.Equal(t, 5*time.Second, cfg.SourceTimeout)
	require.Equal(t, 3, cfg.DigestSize)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		ListenAddr:      ":8080",
		DefaultLanguage: "de",
		DefaultLimit:    20,
		MaxLimit:        100,
		SourceTimeout:   10 * time.Second,
		RequestTimeout:  30 * time.Second,
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(Config) Config
	}{
		{name: "empty listen addr", mutate: func(c Config) Config { c.ListenAddr = " "; return c }},
		{name: "bad language", mutate: func(c Config) Config { c.DefaultLanguage = "deutsch"; return c }},
		{name: "zero default limit", mutate: func(c Config) Config { c.DefaultLimit = 0; return c }},
		{name: "max below default", mutate: func(c Config) Config { c.MaxLimit = 5; return c }},
		{name: "zero source timeout", mutate: func(c Config) Config { c.SourceTimeout = 0; return c }},
		{name: "request below source timeout", mutate: func(c Config) Config { c.RequestTimeout = time.Second; return c }},
		{name: "negative digest size", mutate: func(c Config) Config { c.DigestSize = -1; return c }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.mutate(valid)
			require.Error(t, cfg.Validate())
		})
	}
}
