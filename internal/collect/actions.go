// Package collect pulls the pages of Notion databases, flattens them into
// documents and optionally expands their links.
package collect

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/notion-corpus/internal/common"
	"github.com/dtnitsch/notion-corpus/internal/crawl"
	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/db"
	"github.com/dtnitsch/notion-corpus/pkg/storage"
)

// CollectAction queries each configured database, flattens every page and
// writes one document per page.
func CollectAction(c *cli.Context) (err error) {
	logger := common.NewLogger(c)
	startTime := time.Now()

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	if len(cfg.Notion.DatabaseIDs) == 0 {
		return errors.New("no Notion databases given; use --database-id or notion.database_ids")
	}
	filter, err := crawl.Filter(cfg)
	if err != nil {
		return err
	}

	client, err := crawl.NewNotionClient(cfg, logger)
	if err != nil {
		return err
	}
	flat := crawl.NewFlattener(cfg, client, logger)

	database, err := db.Open(cfg.Output.DBPath, cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	p, err := crawl.NewPipeline(cfg, database, client, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	sources, err := storage.New(filepath.Join(cfg.Output.Dir, crawl.NotionDir))
	if err != nil {
		return err
	}

	runID, err := database.InsertRun("collect")
	if err != nil {
		return err
	}
	var stats db.RunStats
	defer func() {
		if ferr := database.FinishRun(runID, stats, err); ferr != nil {
			logger.Error("Failed to finish run", "run_id", runID, "error", ferr)
		}
	}()

	var docs []models.Document
	var files []string
	for _, dbID := range cfg.Notion.DatabaseIDs {
		pages, err := client.QueryDatabase(c.Context, dbID, filter)
		if err != nil {
			return fmt.Errorf("failed to query database %s: %w", dbID, err)
		}
		logger.Info("Queried database", "database_id", dbID, "pages", len(pages))

		for _, page := range pages {
			res := flat.Flatten(c.Context, page.ID)
			doc := models.NewDocument(page, res.Content, res.URLs)

			written, path, err := p.Save(sources, doc, db.SourceNotion, runID)
			if err != nil {
				return err
			}
			logger.Debug("Wrote document", "document_id", written.ID, "title", page.Title, "urls", len(doc.ChildURLs), "path", path)
			// Expansion keeps the unobfuscated document so parents carry real IDs.
			docs = append(docs, doc)
			files = append(files, path)
		}
	}
	stats.DocumentCount = len(docs)

	if cfg.Crawl.Expand {
		out, err := p.Expand(c.Context, "collect", runID, docs)
		stats.Attempted = out.Stats.Attempted
		stats.Succeeded = out.Stats.Succeeded
		stats.Failed = out.Stats.Failed
		if err != nil {
			return err
		}
		files = append(files, out.Files...)
		fmt.Printf("Manifest: %s\n", out.ManifestPath)
	}

	if err := p.Upload(c.Context, files); err != nil {
		return err
	}

	logger.Info("Collect finished", "run_id", runID, "documents", len(docs), "duration", time.Since(startTime))
	fmt.Printf("Run %d: %d documents collected", runID, len(docs))
	if cfg.Crawl.Expand {
		fmt.Printf(", %d expanded (%d failed)", stats.Succeeded, stats.Failed)
	}
	fmt.Println()
	return nil
}
