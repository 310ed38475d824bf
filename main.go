package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/notion-corpus/internal/collect"
	"github.com/dtnitsch/notion-corpus/internal/crawl"
	dbcmd "github.com/dtnitsch/notion-corpus/internal/db"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "notion-corpus",
		Usage:   "Flatten Notion databases into documents and expand their links into a corpus",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"NOTION_CORPUS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "notion-key",
				Usage:   "Notion integration secret",
				EnvVars: []string{"NOTION_SECRET_KEY"},
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Directory for documents, manifests and the database (default: data/notion)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path (default: <output-dir>/notion-corpus.db)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug records",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "collect",
				Usage:  "Query Notion databases and write one flattened document per page",
				Flags:  append(collectFlags(), expandFlags()...),
				Action: collect.CollectAction,
			},
			{
				Name:  "crawl",
				Usage: "Expand the child URLs of collected documents into new documents",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "input",
						Usage: "Doublestar pattern of documents to expand, relative to the output directory",
						Value: crawl.NotionDir + "/*.json",
					},
				}, expandFlags()...),
				Action: crawl.CrawlAction,
			},
			{
				Name:  "runs",
				Usage: "Inspect collect and crawl runs",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List recent runs",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum runs to show"},
						},
						Action: dbcmd.RunsAction,
					},
					{
						Name:      "show",
						Usage:     "Show a run and its link outcomes (default: latest)",
						ArgsUsage: "[run-id]",
						Action:    dbcmd.RunAction,
					},
				},
			},
			{
				Name:  "docs",
				Usage: "Inspect stored documents",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List stored documents",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "source", Usage: "Only documents from this source (notion or expanded)"},
							&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum documents to show"},
						},
						Action: dbcmd.DocumentsAction,
					},
					{
						Name:      "show",
						Usage:     "Show the child URLs of a document",
						ArgsUsage: "<document-id>",
						Action:    dbcmd.DocumentAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func collectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "database-id",
			Aliases: []string{"d"},
			Usage:   "Notion database to collect (repeatable)",
			EnvVars: []string{"NOTION_DATABASE_IDS"},
		},
		&cli.StringFlag{Name: "filter", Usage: "Raw JSON filter for the database query"},
		&cli.BoolFlag{Name: "expand", Usage: "Expand the child URLs of collected documents"},
		&cli.BoolFlag{Name: "obfuscate", Usage: "Replace document identifiers before writing"},
		&cli.BoolFlag{Name: "save-text", Usage: "Also write each document's content as <id>.txt"},
	}
}

func expandFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "concurrency", Usage: "Maximum link fetches in flight (default: 10)"},
		&cli.DurationFlag{Name: "request-timeout", Usage: "Timeout of one link fetch (default: 30s)"},
		&cli.StringFlag{Name: "fetcher", Usage: "Page fetcher: http or browser"},
		&cli.StringFlag{Name: "browser-url", Usage: "DevTools URL of a running Chrome for the browser fetcher"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Cache fetched pages in this directory"},
		&cli.DurationFlag{Name: "cache-ttl", Value: 24 * time.Hour, Usage: "Age after which cached pages are refetched"},
		&cli.StringFlag{Name: "upload-url", Usage: "Copy written files to this URL (s3://bucket/prefix, file:///dir)"},
		&cli.StringFlag{Name: "metrics-file", Usage: "Write expansion metrics in node_exporter textfile format"},
	}
}
