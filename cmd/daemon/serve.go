// Path: cmd/daemon/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gate-scraper/internal/cache"
	"gate-scraper/internal/delivery/rest"
	"gate-scraper/internal/events"
	"gate-scraper/internal/logger"
	"gate-scraper/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load Configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	// 2. Setup Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize the cache backend
	backend, release, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open cache backend")
		return err
	}
	defer release()

	// 4. Initialize Components
	log.Info().Msg("Initializing components...")
	broker := events.NewBroker()
	defer broker.Close()
	resultCache := cache.New(backend, cfg.Cache.TTL(), logger.Component(log, "cache"))
	crawler := newCrawler(cfg, log)

	// 5. Initialize The Engine
	coreService := service.NewService(service.Options{
		CrawlTimeout: cfg.Service.CrawlTimeout(),
		DefaultLimit: cfg.Scraper.DefaultLimit,
		MaxLimit:     cfg.Scraper.MaxLimit,
	}, crawler, resultCache, broker, logger.Component(log, "service"))

	go logEvents(ctx, broker, logger.Component(log, "events"))

	// 6. Initialize and Start The API Server
	apiServer := rest.NewServer(
		cfg.Server.Port,
		cfg.Service.CrawlTimeout()+10*time.Second,
		coreService,
		logger.Component(log, "http"),
	)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("API server starting")
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 7. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received. Shutting down gracefully...")
	case err = <-serverErr:
		log.Error().Err(err).Msg("API server failed")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during API server shutdown")
	}
	coreService.Stop()

	log.Info().Msg("Server shut down successfully.")
	return err
}

// logEvents writes crawl and cache lifecycle events to the log until ctx ends.
func logEvents(ctx context.Context, broker *events.Broker, log zerolog.Logger) {
	completed, stopCompleted := broker.Subscribe(service.EventCrawlCompleted, 16)
	defer stopCompleted()
	failed, stopFailed := broker.Subscribe(service.EventCrawlFailed, 16)
	defer stopFailed()
	cleared, stopCleared := broker.Subscribe(service.EventCacheCleared, 4)
	defer stopCleared()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-completed:
			if !ok {
				return
			}
			if ce, ok := ev.Data.(service.CrawlEvent); ok {
				log.Info().
					Str("crawl_id", ce.CrawlID).
					Str("tag", ce.Query.Tag).
					Int("items", ce.Stats.Items).
					Int("pages", ce.Stats.Pages).
					Bool("cached", ce.Cached).
					Dur("elapsed", ce.Duration).
					Msg(ev.Topic)
			}
		case ev, ok := <-failed:
			if !ok {
				return
			}
			if ce, ok := ev.Data.(service.CrawlEvent); ok {
				log.Warn().
					Str("crawl_id", ce.CrawlID).
					Str("tag", ce.Query.Tag).
					Err(ce.Err).
					Dur("elapsed", ce.Duration).
					Msg(ev.Topic)
			}
		case ev, ok := <-cleared:
			if !ok {
				return
			}
			log.Info().Time("at", ev.At).Msg(ev.Topic)
		}
	}
}
