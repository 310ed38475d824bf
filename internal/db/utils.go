// Package db implements the commands that inspect the metadata database.
package db

import (
	"fmt"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/dtnitsch/notion-corpus/pkg/db"
	"github.com/dtnitsch/notion-corpus/pkg/storage"
)

// GetRunIDOrLatest returns the run ID from args, or the latest run if not provided
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		runs, err := database.ListRuns(1)
		if err != nil {
			return 0, fmt.Errorf("failed to get latest run: %w", err)
		}
		if len(runs) == 0 {
			return 0, fmt.Errorf("no runs found. Run 'notion-corpus collect' first")
		}
		return runs[0].RunID, nil
	}

	var runID int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &runID); err != nil {
		return 0, fmt.Errorf("invalid run ID: %s", c.Args().First())
	}
	return runID, nil
}

// documentDetails is everything docs show prints about one document. File is
// nil when the JSON file is gone; LastAccess is nil when the document's URL
// was never fetched by an expansion.
type documentDetails struct {
	Record     *dbpkg.DocumentRecord
	File       *storage.FileStats
	LastAccess *dbpkg.AccessRecord
	ChildURLs  []string
}

func loadDocumentDetails(database *dbpkg.DB, store *storage.Storage, id string) (documentDetails, error) {
	record, err := database.GetDocument(id)
	if err != nil {
		return documentDetails{}, err
	}
	details := documentDetails{Record: record}

	if record.FilePath != "" {
		if stats, err := store.GetFileStats(record.FilePath); err == nil {
			details.File = stats
		}
	}

	if record.URL != "" {
		if urlID, err := database.GetURLID(record.URL); err == nil {
			details.LastAccess, err = database.GetLastAccess(urlID)
			if err != nil {
				return details, err
			}
		}
	}

	details.ChildURLs, err = database.ChildURLs(id)
	if err != nil {
		return details, err
	}
	return details, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
