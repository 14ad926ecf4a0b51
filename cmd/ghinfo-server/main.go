package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghinfo/ghinfo/internal/adapters/cache"
	"github.com/ghinfo/ghinfo/internal/adapters/upstream"
	"github.com/ghinfo/ghinfo/internal/api/handlers"
	"github.com/ghinfo/ghinfo/internal/config"
	"github.com/ghinfo/ghinfo/internal/core/batch"
	"github.com/ghinfo/ghinfo/internal/core/services"
	"github.com/ghinfo/ghinfo/internal/util/logging"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	bootLogger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "ghinfo").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger, err := logging.New(os.Stdout, cfg.Log.Level)
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to initialize logger")
	}
	logger = logger.With().Str("service", "ghinfo").Logger()

	// Initialize the GitHub client.
	client, err := upstream.NewGitHubClient(upstream.Options{
		BaseURL: cfg.GitHub.BaseURL,
		Token:   cfg.GitHub.Token,
		Timeout: cfg.GitHub.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize github client")
	}

	var (
		up    services.Upstream = client
		store *cache.TTLCache
	)
	if cfg.Cache.Enabled {
		store = cache.New(cache.WithShards(cfg.Cache.Shards))
		up = upstream.NewCachedClient(client, store, cfg.Cache.TTL, logger)
	}

	// Initialize the batch engine.
	aggregator := batch.NewAggregator(batch.NewResolver(up, logger), cfg.Batch.Concurrency, logger)

	// Initialize HTTP handlers.
	handler := handlers.New(up, aggregator, logger, handlers.Options{
		Version:            version,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		ev := logger.Info()
		if store != nil {
			ev = ev.Int("cache_entries", store.Len())
		}
		ev.Msg("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			srv.Close()
		}
	}()

	logger.Info().
		Str("addr", cfg.Server.Address).
		Bool("cache", cfg.Cache.Enabled).
		Dur("cache_ttl", cfg.Cache.TTL).
		Bool("authenticated", cfg.GitHub.Token != "").
		Msg("starting ghinfo server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
	<-done
}
