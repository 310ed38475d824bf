// Package crawl expands the child URLs of stored documents into new
// documents.
package crawl

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/notion-corpus/internal/common"
	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/db"
	"github.com/dtnitsch/notion-corpus/pkg/notion"
)

// CrawlAction expands documents previously written by collect.
func CrawlAction(c *cli.Context) (err error) {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.Output.DBPath, cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	// Notion links re-enter the flattener only when a key is available.
	var client *notion.Client
	if cfg.Notion.APIKey != "" {
		client, err = NewNotionClient(cfg, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("No Notion API key; Notion links will be scraped as web pages")
	}

	p, err := NewPipeline(cfg, database, client, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	pattern := c.String("input")
	docs, err := p.Root.ReadDocuments(pattern)
	if err != nil {
		return err
	}
	docs = models.UniqueDocuments(docs)
	if len(docs) == 0 {
		fmt.Fprintf(os.Stderr, "No documents match %q under %s\n", pattern, p.Root.Dir())
		fmt.Fprintln(os.Stderr, "Run 'notion-corpus collect' first, or pass --input")
		return nil
	}

	runID, err := database.InsertRun("crawl")
	if err != nil {
		return err
	}
	stats := db.RunStats{DocumentCount: len(docs)}
	defer func() {
		if ferr := database.FinishRun(runID, stats, err); ferr != nil {
			logger.Error("Failed to finish run", "run_id", runID, "error", ferr)
		}
	}()

	out, err := p.Expand(c.Context, "crawl", runID, docs)
	stats.Attempted = out.Stats.Attempted
	stats.Succeeded = out.Stats.Succeeded
	stats.Failed = out.Stats.Failed
	if err != nil {
		return err
	}

	if err := p.Upload(c.Context, out.Files); err != nil {
		return err
	}

	fmt.Printf("Run %d: %d documents, %d links attempted, %d succeeded, %d failed\n",
		runID, len(docs), out.Stats.Attempted, out.Stats.Succeeded, out.Stats.Failed)
	fmt.Printf("Manifest: %s\n", out.ManifestPath)
	return nil
}
