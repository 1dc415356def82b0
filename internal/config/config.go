// Path: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Scraper  ScraperConfig
	Cache    CacheConfig
	Service  ServiceConfig
	Log      LogConfig
}

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds the MongoDB connection settings used by the "mongo" cache backend.
type DatabaseConfig struct {
	URI        string `mapstructure:"uri"`
	Name       string `mapstructure:"name"`
	Collection string `mapstructure:"collection"`
}

// ScraperConfig holds settings for the tag search crawler.
type ScraperConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	SearchPath         string `mapstructure:"search_path"`
	UserAgent          string `mapstructure:"user_agent"`
	RequestsPerSecond  int    `mapstructure:"requests_per_second"`
	BurstLimit         int    `mapstructure:"burst_limit"`
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
	DefaultLimit       int    `mapstructure:"default_limit"`
	MaxLimit           int    `mapstructure:"max_limit"`
	ResultsPerPage     int    `mapstructure:"results_per_page"`
}

// HTTPTimeout is the per-request timeout of the page fetcher.
func (c ScraperConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// CacheConfig selects and tunes the result cache.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	Dir        string `mapstructure:"dir"`
}

// TTL is the freshness window of a cache entry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ServiceConfig holds orchestration settings.
type ServiceConfig struct {
	CrawlTimeoutSeconds int `mapstructure:"crawl_timeout_seconds"`
}

// CrawlTimeout bounds a whole crawl.
func (c ServiceConfig) CrawlTimeout() time.Duration {
	return time.Duration(c.CrawlTimeoutSeconds) * time.Second
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

// Load loads the configuration from file and environment variables.
// An empty path searches ./configs for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("DATABASE.URI", "mongodb://localhost:27017")
	v.SetDefault("DATABASE.NAME", "gate-scraper")
	v.SetDefault("DATABASE.COLLECTION", "result_cache")
	v.SetDefault("SCRAPER.BASE_URL", "https://gateoverflow.in")
	v.SetDefault("SCRAPER.SEARCH_PATH", "/tag-search-page")
	v.SetDefault("SCRAPER.USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	v.SetDefault("SCRAPER.REQUESTS_PER_SECOND", 2)
	v.SetDefault("SCRAPER.BURST_LIMIT", 1)
	v.SetDefault("SCRAPER.HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("SCRAPER.DEFAULT_LIMIT", 10)
	v.SetDefault("SCRAPER.MAX_LIMIT", 100)
	v.SetDefault("SCRAPER.RESULTS_PER_PAGE", 10)
	v.SetDefault("CACHE.BACKEND", BackendFile)
	v.SetDefault("CACHE.TTL_SECONDS", 300)
	v.SetDefault("CACHE.DIR", "./data/cache")
	v.SetDefault("SERVICE.CRAWL_TIMEOUT_SECONDS", 120)
	v.SetDefault("LOG.LEVEL", "info")
	v.SetDefault("LOG.FORMAT", "console")
	v.SetDefault("LOG.FILE", "")
	v.SetDefault("LOG.MAX_SIZE_MB", 10)
	v.SetDefault("LOG.MAX_BACKUPS", 3)
	v.SetDefault("LOG.MAX_AGE_DAYS", 28)
	v.SetDefault("LOG.COMPRESS", true)

	// Load from config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Load from environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Cache.TTLSeconds <= 0:
		return fmt.Errorf("cache.ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	case c.Service.CrawlTimeoutSeconds <= 0:
		return fmt.Errorf("service.crawl_timeout_seconds must be positive, got %d", c.Service.CrawlTimeoutSeconds)
	case c.Scraper.DefaultLimit <= 0:
		return fmt.Errorf("scraper.default_limit must be positive, got %d", c.Scraper.DefaultLimit)
	case c.Scraper.MaxLimit < c.Scraper.DefaultLimit:
		return fmt.Errorf("scraper.max_limit (%d) is below scraper.default_limit (%d)", c.Scraper.MaxLimit, c.Scraper.DefaultLimit)
	case c.Scraper.ResultsPerPage <= 0:
		return fmt.Errorf("scraper.results_per_page must be positive, got %d", c.Scraper.ResultsPerPage)
	case c.Scraper.BaseURL == "":
		return errors.New("scraper.base_url is required")
	}

	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Dir == "" {
			return errors.New("cache.dir is required for the file backend")
		}
	case BackendMongo:
		if c.Database.URI == "" {
			return errors.New("database.uri is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	return nil
}
