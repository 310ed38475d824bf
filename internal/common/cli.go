package common

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/notion-corpus/models"
)

// NewLogger builds the JSON stderr logger every command uses. --quiet keeps
// errors only; --verbose adds debug records.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case c.Bool("quiet"):
		logLevel = slog.LevelError
	case c.Bool("verbose"):
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads the --config file, if any, and applies the flags that were
// set on the command line or through their environment variables.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if key := c.String("notion-key"); key != "" {
		cfg.Notion.APIKey = key
	}
	if c.IsSet("output-dir") {
		cfg.Output.Dir = c.String("output-dir")
	}
	if c.IsSet("db") {
		cfg.Output.DBPath = c.String("db")
	}

	if c.IsSet("database-id") {
		cfg.Notion.DatabaseIDs = c.StringSlice("database-id")
	}
	if c.IsSet("filter") {
		cfg.Notion.Filter = c.String("filter")
	}
	if c.IsSet("expand") {
		cfg.Crawl.Expand = c.Bool("expand")
	}
	if c.IsSet("concurrency") {
		cfg.Crawl.MaxConcurrency = c.Int("concurrency")
	}
	if c.IsSet("request-timeout") {
		cfg.Crawl.RequestTimeout = c.Duration("request-timeout")
	}
	if c.IsSet("fetcher") {
		cfg.Crawl.Fetcher = c.String("fetcher")
	}
	if c.IsSet("browser-url") {
		cfg.Crawl.BrowserURL = c.String("browser-url")
	}
	if c.IsSet("cache-dir") {
		cfg.Crawl.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("cache-ttl") {
		cfg.Crawl.CacheTTL = c.Duration("cache-ttl")
	}
	if c.IsSet("obfuscate") {
		cfg.Output.Obfuscate = c.Bool("obfuscate")
	}
	if c.IsSet("save-text") {
		cfg.Output.SaveText = c.Bool("save-text")
	}
	if c.IsSet("upload-url") {
		cfg.Output.UploadURL = c.String("upload-url")
	}
	if c.IsSet("metrics-file") {
		cfg.Output.MetricsFile = c.String("metrics-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
