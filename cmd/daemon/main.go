// Path: cmd/daemon/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gate-scraper/internal/config"
)

var (
	version = "dev"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:          "gatescraper",
	Short:        "Tag question scraper with a result cache",
	Long:         "gatescraper crawls tag search pages, normalizes the question cards and serves them through a cached HTTP API.",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(crawlCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
