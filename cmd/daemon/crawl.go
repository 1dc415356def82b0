// Path: cmd/daemon/crawl.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gate-scraper/internal/config"
	"gate-scraper/internal/domain"
	"gate-scraper/internal/logger"
	"gate-scraper/internal/scraper"
)

var (
	flagTags   string
	flagLimit  int
	flagOutput string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl one tag and print the items as JSON",
	Long: `Crawl runs a single crawl outside the HTTP API and without the cache.
Items are printed to stdout, or written to --output when given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Logs go to stderr so stdout stays valid JSON.
		log := logger.NewWithWriter(cfg.Log, os.Stderr)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		return runCrawl(ctx, cfg, crawlOptions{
			Tag:    flagTags,
			Limit:  flagLimit,
			Output: flagOutput,
		}, cmd.OutOrStdout(), log)
	},
}

func init() {
	crawlCmd.Flags().StringVar(&flagTags, "tags", "", "tag to crawl (required)")
	crawlCmd.Flags().IntVar(&flagLimit, "limit", 10, "number of result pages to crawl")
	crawlCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write items to this file instead of stdout")
	crawlCmd.MarkFlagRequired("tags")
}

type crawlOptions struct {
	Tag    string
	Limit  int
	Output string
}

func runCrawl(ctx context.Context, cfg *config.Config, opts crawlOptions, stdout io.Writer, log zerolog.Logger) error {
	tag := strings.TrimSpace(opts.Tag)
	if tag == "" {
		return errors.New("--tags must not be empty")
	}
	if opts.Limit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", opts.Limit)
	}

	timeout := cfg.Service.CrawlTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = scraper.WithCrawlID(ctx, uuid.NewString())

	start := time.Now()
	items, stats, err := newCrawler(cfg, log).Crawl(ctx, tag, opts.Limit)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("crawl timed out after %s: %w", timeout, err)
		}
		log.Error().Err(err).Str("tag", tag).Msg("Crawl failed")
		return err
	}
	log.Info().
		Str("tag", tag).
		Int("items", len(items)).
		Int("pages", stats.Pages).
		Int("skipped", stats.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl completed")

	if opts.Output == "" {
		return writeItems(stdout, items)
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeItems(f, items); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("path", opts.Output).Msg("Items saved")
	return nil
}

func writeItems(w io.Writer, items []domain.Item) error {
	if items == nil {
		items = []domain.Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	return nil
}
