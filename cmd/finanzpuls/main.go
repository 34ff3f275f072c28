package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/marktblick/finanzpuls/internal/aggregate"
	"github.com/marktblick/finanzpuls/internal/config"
	"github.com/marktblick/finanzpuls/internal/domain"
	"github.com/marktblick/finanzpuls/internal/logger"
	"github.com/marktblick/finanzpuls/internal/metrics"
	"github.com/marktblick/finanzpuls/internal/scoring"
	"github.com/marktblick/finanzpuls/internal/scraper"
	"github.com/marktblick/finanzpuls/internal/server"
	"github.com/marktblick/finanzpuls/pkg/feeds"
	"github.com/marktblick/finanzpuls/pkg/publishers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "finanzpuls: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FINANZPULS_CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("load source registry: %w", err)
	}

	engine, err := scoring.NewEngine(scoring.DefaultLexicon())
	if err != nil {
		return fmt.Errorf("build scoring engine: %w", err)
	}

	var fetcher feeds.Fetcher = feeds.NewRSSFetcher(nil)
	if cfg.EnrichSummaries {
		fetcher = scraper.NewEnrichingFetcher(fetcher, scraper.New(nil, 0, log))
	}

	met := metrics.New(nil)
	aggregator := aggregate.New(registry, fetcher, engine,
		aggregate.WithSourceTimeout(cfg.SourceTimeout),
		aggregate.WithLogger(log),
		aggregate.WithMetrics(met),
	)

	onResult, cleanup, err := buildDispatcher(cfg, log)
	if err != nil {
		return fmt.Errorf("build publishers: %w", err)
	}
	defer cleanup()

	srv := server.New(aggregator, registry, server.Options{
		DefaultLanguage: cfg.DefaultLanguage,
		DefaultLimit:    cfg.DefaultLimit,
		MaxLimit:        cfg.MaxLimit,
		RequestTimeout:  cfg.RequestTimeout,
	}, log, onResult)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoObj("http server listening", "server_start", map[string]any{
			"addr":    cfg.ListenAddr,
			"sources": registry.Len(),
		})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.InfoObj("shutting down", "server_stop", map[string]any{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildRegistry(cfg *config.Config) (*feeds.Registry, error) {
	if cfg.SourcesFile == "" {
		return feeds.DefaultRegistry(), nil
	}
	return feeds.LoadRegistry(cfg.SourcesFile)
}

// buildDispatcher wires the digest sinks. Returns a nil callback when no
// publishers are configured.
func buildDispatcher(cfg *config.Config, log logger.Logger) (func(domain.Result, domain.Query), func(), error) {
	nop := func() {}
	if cfg.PublishersFile == "" {
		return nil, nop, nil
	}

	pubReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, nop, err
	}

	pubs, err := publishers.DefaultBuilders().Build(context.Background(), pubReg.Enabled(), log)
	if err != nil {
		return nil, nop, err
	}
	if len(pubs) == 0 {
		return nil, nop, nil
	}

	var ledger *publishers.Ledger
	cleanup := nop
	if cfg.LedgerFile != "" {
		ledger, err = publishers.OpenLedger(cfg.LedgerFile)
		if err != nil {
			return nil, nop, err
		}
		cleanup = func() { _ = ledger.Close() }
	}

	dispatcher := publishers.NewDispatcher(pubs, ledger, cfg.DigestSize, log)
	return dispatcher.Dispatch, cleanup, nil
}
