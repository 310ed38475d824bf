// Package models defines the document data model and runtime configuration.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Values come from an optional YAML file
// and are then overridden by CLI flags.
type Config struct {
	Notion NotionConfig `yaml:"notion"`
	Crawl  CrawlConfig  `yaml:"crawl"`
	Output OutputConfig `yaml:"output"`
}

// NotionConfig configures the block source.
type NotionConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Version     string        `yaml:"version"`
	PageSize    int           `yaml:"page_size"`
	MaxPages    int           `yaml:"max_pages"`
	Timeout     time.Duration `yaml:"timeout"`
	DatabaseIDs []string      `yaml:"database_ids"`
	Filter      string        `yaml:"filter"` // raw JSON filter for database queries
}

// CrawlConfig configures link expansion.
type CrawlConfig struct {
	Expand         bool          `yaml:"expand"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Fetcher        string        `yaml:"fetcher"` // "http" or "browser"
	UserAgent      string        `yaml:"user_agent"`
	MaxBytes       int64         `yaml:"max_bytes"`
	CacheDir       string        `yaml:"cache_dir"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	BrowserURL     string        `yaml:"browser_url"` // remote DevTools URL; empty launches a local Chrome
}

// OutputConfig configures where documents and diagnostics go.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Obfuscate   bool   `yaml:"obfuscate"`
	SaveText    bool   `yaml:"save_text"`
	UploadURL   string `yaml:"upload_url"`
	DBPath      string `yaml:"db_path"`
	MetricsFile string `yaml:"metrics_file"`
}

const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// LoadConfig reads a YAML config file and applies defaults. An empty path
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	c.ApplyDefaults()
	return c, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = "https://api.notion.com"
	}
	if c.Notion.Version == "" {
		c.Notion.Version = "2022-06-28"
	}
	if c.Notion.PageSize <= 0 || c.Notion.PageSize > 100 {
		c.Notion.PageSize = 100
	}
	if c.Notion.MaxPages <= 0 {
		c.Notion.MaxPages = 20
	}
	if c.Notion.Timeout <= 0 {
		c.Notion.Timeout = 10 * time.Second
	}
	if c.Crawl.MaxConcurrency == 0 {
		c.Crawl.MaxConcurrency = 10
	}
	if c.Crawl.RequestTimeout <= 0 {
		c.Crawl.RequestTimeout = 30 * time.Second
	}
	if c.Crawl.Fetcher == "" {
		c.Crawl.Fetcher = FetcherHTTP
	}
	if c.Crawl.UserAgent == "" {
		c.Crawl.UserAgent = "notion-corpus/1.0"
	}
	if c.Crawl.MaxBytes <= 0 {
		c.Crawl.MaxBytes = 10 * 1024 * 1024
	}
	if c.Crawl.CacheTTL == 0 {
		c.Crawl.CacheTTL = 24 * time.Hour
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "data/notion"
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	var errs []error
	if c.Crawl.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("crawl.max_concurrency: %w", ErrInvalidConcurrency))
	}
	if c.Crawl.Fetcher != FetcherHTTP && c.Crawl.Fetcher != FetcherBrowser {
		errs = append(errs, fmt.Errorf("crawl.fetcher: unknown fetcher %q", c.Crawl.Fetcher))
	}
	return errors.Join(errs...)
}
