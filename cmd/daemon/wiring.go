// Path: cmd/daemon/wiring.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gate-scraper/internal/cache"
	"gate-scraper/internal/config"
	"gate-scraper/internal/logger"
	"gate-scraper/internal/scraper"
	"gate-scraper/internal/storage"
)

// newCrawler assembles fetcher, parser and pagination for the configured site.
func newCrawler(cfg *config.Config, log zerolog.Logger) *scraper.Crawler {
	fetcher := scraper.NewScraper(cfg.Scraper)
	parser := scraper.NewParser(cfg.Scraper.BaseURL, logger.Component(log, "parser"))
	return scraper.NewCrawler(fetcher, parser, logger.Component(log, "crawler"))
}

// openBackend returns the configured cache backend and a function releasing it.
func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cache.Backend, func(), error) {
	switch cfg.Cache.Backend {
	case config.BackendMongo:
		log.Info().Str("uri", cfg.Database.URI).Msg("Connecting to MongoDB...")
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Database.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("failed to reach MongoDB: %w", err)
		}

		store := storage.NewMongoStore(client.Database(cfg.Database.Name), cfg.Database.Collection)
		if err := store.EnsureIndexes(connectCtx); err != nil {
			log.Warn().Err(err).Msg("Could not create cache indexes")
		}
		release := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error disconnecting from MongoDB")
			}
		}
		return store, release, nil

	default:
		store, err := storage.NewFileStore(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.Cache.Dir).Msg("Using file cache")
		return store, func() {}, nil
	}
}
