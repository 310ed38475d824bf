package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/caching"
	"github.com/dtnitsch/notion-corpus/pkg/db"
	"github.com/dtnitsch/notion-corpus/pkg/expander"
	"github.com/dtnitsch/notion-corpus/pkg/fetcher"
	"github.com/dtnitsch/notion-corpus/pkg/flattener"
	"github.com/dtnitsch/notion-corpus/pkg/linkfetch"
	"github.com/dtnitsch/notion-corpus/pkg/manifest"
	"github.com/dtnitsch/notion-corpus/pkg/notion"
	"github.com/dtnitsch/notion-corpus/pkg/storage"
	"github.com/dtnitsch/notion-corpus/pkg/upload"
)

// Output subdirectories of the output directory.
const (
	NotionDir   = "notion"
	ExpandedDir = "expanded"
)

// NewNotionClient builds the Notion client from cfg.
func NewNotionClient(cfg *models.Config, logger *slog.Logger) (*notion.Client, error) {
	return notion.New(notion.Config{
		APIKey:  cfg.Notion.APIKey,
		BaseURL: cfg.Notion.BaseURL,
		Version: cfg.Notion.Version,
		Timeout: cfg.Notion.Timeout,
	}, logger)
}

// NewFlattener builds a flattener reading blocks from client.
func NewFlattener(cfg *models.Config, client flattener.BlockSource, logger *slog.Logger) *flattener.Flattener {
	return flattener.New(client, logger, flattener.Config{
		PageSize: cfg.Notion.PageSize,
		MaxPages: cfg.Notion.MaxPages,
	})
}

// Filter decodes the configured database query filter. An empty filter
// yields nil.
func Filter(cfg *models.Config) (json.RawMessage, error) {
	if cfg.Notion.Filter == "" {
		return nil, nil
	}
	raw := json.RawMessage(cfg.Notion.Filter)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("notion filter is not valid JSON")
	}
	return raw, nil
}

// Pipeline holds everything one expansion batch needs.
type Pipeline struct {
	Config   *models.Config
	Root     *storage.Storage
	Expanded *storage.Storage
	DB       *db.DB
	Expander *expander.Expander
	Metrics  *expander.Metrics
	Uploader *upload.Uploader
	Logger   *slog.Logger

	browser *fetcher.BrowserFetcher
}

// NewPipeline builds the expansion pipeline. client may be nil, in which case
// Notion links are scraped like any other page.
func NewPipeline(cfg *models.Config, database *db.DB, client *notion.Client, logger *slog.Logger) (*Pipeline, error) {
	root, err := storage.New(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	expanded, err := storage.New(filepath.Join(cfg.Output.Dir, ExpandedDir))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Config:   cfg,
		Root:     root,
		Expanded: expanded,
		DB:       database,
		Metrics:  expander.NewMetrics(),
		Logger:   logger,
	}

	var pf fetcher.PageFetcher
	switch cfg.Crawl.Fetcher {
	case models.FetcherBrowser:
		p.browser = fetcher.NewBrowserFetcher(cfg.Crawl.BrowserURL, logger)
		pf = p.browser
	default:
		pf = fetcher.NewHTTPFetcher(fetcher.Options{
			Timeout:   cfg.Crawl.RequestTimeout,
			UserAgent: cfg.Crawl.UserAgent,
			MaxBytes:  cfg.Crawl.MaxBytes,
		})
	}

	if cfg.Crawl.CacheDir != "" {
		cache, err := caching.NewCache(cfg.Crawl.CacheDir, cfg.Crawl.CacheTTL)
		if err != nil {
			return nil, err
		}
		if n, err := cache.Prune(); err != nil {
			logger.Warn("Failed to prune page cache", "dir", cfg.Crawl.CacheDir, "error", err)
		} else if n > 0 {
			logger.Info("Pruned page cache", "dir", cfg.Crawl.CacheDir, "removed", n)
		}
		pf = fetcher.NewCached(pf, cache, logger)
	}

	var opts []linkfetch.Option
	if client != nil {
		opts = append(opts, linkfetch.WithNotion(client, NewFlattener(cfg, client, logger)))
	}
	router := linkfetch.NewRouter(pf, logger, opts...)

	p.Expander = expander.New(router, logger,
		expander.WithRequestTimeout(cfg.Crawl.RequestTimeout),
		expander.WithMetrics(p.Metrics),
	)

	if cfg.Output.UploadURL != "" {
		p.Uploader, err = upload.New(cfg.Output.UploadURL, logger)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Close releases the headless browser, if one was started.
func (p *Pipeline) Close() error {
	if p.browser != nil {
		return p.browser.Close()
	}
	return nil
}

// Outcome is the result of one expansion batch.
type Outcome struct {
	Documents    []models.Document
	Stats        expander.Stats
	ManifestPath string
	Files        []string
}

// Expand fetches the child URLs of docs, writes the produced documents, and
// records every attempt under runID.
func (p *Pipeline) Expand(ctx context.Context, command string, runID int64, docs []models.Document) (Outcome, error) {
	results, stats, err := p.Expander.ExpandResults(ctx, docs, p.Config.Crawl.MaxConcurrency)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Stats: stats}
	written := make(map[string]string, stats.Succeeded)
	for _, r := range results {
		p.recordAccess(runID, r)
		if !r.OK() {
			continue
		}
		doc, path, err := p.Save(p.Expanded, *r.Document, db.SourceExpanded, runID)
		if err != nil {
			return out, err
		}
		written[r.Document.ID] = path
		out.Documents = append(out.Documents, doc)
		out.Files = append(out.Files, path)
	}

	m := manifest.Generate(command, len(docs), results, written)
	m.RunID = runID
	out.ManifestPath, err = m.Write(p.Root)
	if err != nil {
		return out, err
	}
	out.Files = append(out.Files, out.ManifestPath)

	if p.Config.Output.MetricsFile != "" {
		if err := p.Metrics.WriteTextfile(p.Config.Output.MetricsFile); err != nil {
			p.Logger.Warn("Failed to write metrics textfile", "path", p.Config.Output.MetricsFile, "error", err)
		}
	}
	return out, nil
}

func (p *Pipeline) recordAccess(runID int64, r models.FetchResult) {
	if p.DB == nil {
		return
	}
	urlID, err := p.DB.InsertURL(r.URL)
	if err != nil {
		p.Logger.Warn("Failed to record URL", "url", r.URL, "error", err)
		return
	}
	if err := p.DB.RecordAccess(runID, urlID, r.ErrorType(), r.OK(), r.Duration); err != nil {
		p.Logger.Warn("Failed to record access", "url", r.URL, "error", err)
	}
}

// Save writes doc into s and records it in the metadata database. The
// returned document is the one written, which is obfuscated when configured.
func (p *Pipeline) Save(s *storage.Storage, doc models.Document, source string, runID int64) (models.Document, string, error) {
	written, path, err := s.WriteDocument(doc, storage.WriteOptions{
		Obfuscate: p.Config.Output.Obfuscate,
		AlsoText:  p.Config.Output.SaveText,
	})
	if err != nil {
		return doc, "", fmt.Errorf("failed to write document %s: %w", doc.ID, err)
	}
	if p.DB != nil {
		if err := p.DB.UpsertDocument(written, source, path, runID); err != nil {
			return written, path, err
		}
	}
	return written, path, nil
}

// Upload copies files to the configured destination, if any.
func (p *Pipeline) Upload(ctx context.Context, files []string) error {
	if p.Uploader == nil || len(files) == 0 {
		return nil
	}
	start := time.Now()
	n, err := p.Uploader.UploadFiles(ctx, p.Root.Dir(), files)
	if err != nil {
		return fmt.Errorf("uploaded %d of %d files: %w", n, len(files), err)
	}
	p.Logger.Info("Upload finished", "files", n, "duration", time.Since(start))
	return nil
}
