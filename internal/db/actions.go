package db

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/notion-corpus/internal/common"
	"github.com/dtnitsch/notion-corpus/models"
	dbpkg "github.com/dtnitsch/notion-corpus/pkg/db"
	"github.com/dtnitsch/notion-corpus/pkg/storage"
)

func openDatabase(c *cli.Context) (*models.Config, *dbpkg.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	database, err := dbpkg.Open(cfg.Output.DBPath, cfg.Output.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, database, nil
}

// RunsAction lists recent collect and crawl runs.
func RunsAction(c *cli.Context) error {
	_, database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-8s %-9s %-6s %-9s %-9s %-8s\n",
		"ID", "Started", "Command", "Status", "Docs", "Attempted", "Succeeded", "Failed")
	fmt.Println(strings.Repeat("-", 84))

	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-8s %-9s %-6d %-9d %-9d %-8d\n",
			r.RunID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Command,
			r.Status,
			r.DocumentCount,
			r.Attempted,
			r.Succeeded,
			r.Failed,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'notion-corpus runs show <id>' to see details\n")

	return nil
}

// RunAction shows details for a specific run.
func RunAction(c *cli.Context) error {
	_, database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	summary, err := database.AccessSummary(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %d\n", run.RunID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Command:     %s\n", run.Command)
	fmt.Printf("Status:      %s\n", run.Status)
	fmt.Printf("Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt.Valid {
		fmt.Printf("Finished:    %s (%s)\n", run.FinishedAt.Time.Format("2006-01-02 15:04:05"),
			run.FinishedAt.Time.Sub(run.StartedAt))
	}
	fmt.Printf("Documents:   %d\n", run.DocumentCount)
	fmt.Printf("Links:       %d attempted (%d succeeded, %d failed)\n", run.Attempted, run.Succeeded, run.Failed)
	if run.ErrorMessage != "" {
		fmt.Printf("Error:       %s\n", run.ErrorMessage)
	}

	if len(summary) > 0 {
		types := make([]string, 0, len(summary))
		for t := range summary {
			types = append(types, t)
		}
		sort.Strings(types)

		fmt.Printf("\nAccesses by outcome:\n")
		fmt.Println(strings.Repeat("-", 60))
		for _, t := range types {
			label := t
			if label == "" {
				label = "success"
			}
			fmt.Printf("  %-20s %d\n", label, summary[t])
		}
	}

	return nil
}

// DocumentsAction lists stored documents.
func DocumentsAction(c *cli.Context) error {
	_, database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	docs, err := database.ListDocuments(c.String("source"), c.Int("limit"))
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	fmt.Printf("%-32s %-8s %-8s %-5s %-40s\n", "ID", "Source", "Bytes", "URLs", "Title")
	fmt.Println(strings.Repeat("-", 100))
	for _, d := range docs {
		fmt.Printf("%-32s %-8s %-8d %-5d %-40s\n", d.DocumentID, d.Source, d.ContentBytes, d.ChildURLs, truncate(d.Title, 40))
	}

	fmt.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

// DocumentAction prints one document's record, its file on disk, the last
// fetch of its URL and its child URLs.
func DocumentAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("document ID required")
	}
	cfg, database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	store, err := storage.New(cfg.Output.Dir)
	if err != nil {
		return err
	}
	details, err := loadDocumentDetails(database, store, c.Args().First())
	if err != nil {
		return err
	}

	d := details.Record
	fmt.Printf("Document %s\n", d.DocumentID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Title:       %s\n", d.Title)
	fmt.Printf("Source:      %s\n", d.Source)
	fmt.Printf("URL:         %s\n", d.URL)
	if d.ParentID != "" {
		fmt.Printf("Parent:      %s (%s)\n", d.ParentTitle, d.ParentID)
	}
	if d.RunID.Valid {
		fmt.Printf("Run:         %d\n", d.RunID.Int64)
	}
	fmt.Printf("Content:     %d bytes, sha256 %s\n", d.ContentBytes, truncate(d.ContentHash, 16))

	switch {
	case d.FilePath == "":
		fmt.Printf("File:        (not recorded)\n")
	case details.File == nil:
		fmt.Printf("File:        %s (missing)\n", d.FilePath)
	default:
		fmt.Printf("File:        %s (%d bytes, modified %s)\n", d.FilePath,
			details.File.SizeBytes, details.File.ModTime.Format("2006-01-02 15:04:05"))
	}

	if a := details.LastAccess; a != nil {
		outcome := "success"
		if !a.Success {
			outcome = a.ErrorType
		}
		fmt.Printf("Last fetch:  %s, %s in %dms\n", a.AccessedAt.Format("2006-01-02 15:04:05"), outcome, a.DurationMS)
	}

	fmt.Printf("\nChild URLs (%d):\n", len(details.ChildURLs))
	for i, u := range details.ChildURLs {
		fmt.Printf("%3d. %s\n", i+1, u)
	}
	return nil
}
